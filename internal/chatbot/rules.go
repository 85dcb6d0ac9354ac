package chatbot

import "regexp"

// Rule maps a question pattern to a canned answer.
type Rule struct {
	ID       string
	Pattern  string
	Response string
}

type rule struct {
	Rule
	re *regexp.Regexp
}

// Topic rules. Order matters: the first matching rule answers, so narrower
// patterns come before broad ones ("supraventricular" before "ventricular").
func ruleDefs() []Rule {
	return []Rule{
		{
			ID:       "disclaimer",
			Pattern:  `\b(emergency|chest pain|should i (?:see|call)|is it dangerous|am i (?:ok|okay|dying)|heart attack)\b`,
			Response: "This service is a screening aid, not a medical device. If you have symptoms such as chest pain, fainting or shortness of breath, contact emergency services or a clinician right away.",
		},
		{
			ID:       "supraventricular",
			Pattern:  `\b(supraventricular|sve[bc]?s?|svt|atrial premature|apc|pac)\b`,
			Response: "Supraventricular ectopic beats start above the ventricles, usually in the atria. They arrive early and often look like a normal QRS complex with an abnormal or hidden P wave. Occasional ones are common; frequent ones are worth discussing with a clinician.",
		},
		{
			ID:       "ventricular",
			Pattern:  `\b(ventricular|ve[bc]s?|pvcs?|premature ventricular)\b`,
			Response: "Ventricular ectopic beats start in the ventricles. They come early with a wide, oddly shaped QRS complex and are usually followed by a compensatory pause. Many people have a few, but runs of them can be serious.",
		},
		{
			ID:       "fusion",
			Pattern:  `\bfusion\b`,
			Response: "A fusion beat happens when a normal impulse and a ventricular ectopic impulse activate the ventricles at the same time, so the beat looks like a blend of both shapes.",
		},
		{
			ID:       "unknown",
			Pattern:  `\b(unknown|unclassifiable|paced|pacemaker)\b`,
			Response: "The Unknown class covers paced beats and beats that could not be classified. A pacemaker spike or a noisy recording commonly lands a beat here.",
		},
		{
			ID:       "normal",
			Pattern:  `\b(normal|sinus|healthy)\b`,
			Response: "A normal beat follows the usual path from the sinus node through the atria and ventricles, giving a regular P wave, a narrow QRS complex and a T wave.",
		},
		{
			ID:       "how_it_works",
			Pattern:  `\b(how (?:does|do) (?:it|this|you) work|model|accuracy|classif\w*|how are beats)\b`,
			Response: "Send a single heartbeat sampled at 125 Hz. The waveform is low-pass filtered at 45 Hz, scaled to the 0 to 1 range and fitted to 187 samples, then a pretrained network trained on the MIT-BIH arrhythmia database scores five beat classes. The highest score is reported with its confidence.",
		},
		{
			ID:       "categories",
			Pattern:  `\b(categor\w*|classes|types? of (?:beats?|arrhythmias?)|what can you detect)\b`,
			Response: "Beats are sorted into five classes: Normal, Supraventricular Ectopic, Ventricular Ectopic, Fusion and Unknown.",
		},
		{
			ID:       "greeting",
			Pattern:  `^\s*(hi|hello|hey|good (?:morning|afternoon|evening))\b`,
			Response: "Hello! Ask me about a beat type such as ventricular ectopic or fusion, or how the classifier works.",
		},
	}
}

func compileRules(defs []Rule) ([]rule, error) {
	out := make([]rule, 0, len(defs))
	for _, d := range defs {
		re, err := regexp.Compile(`(?i)` + d.Pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, rule{Rule: d, re: re})
	}
	return out, nil
}

package agent

import (
	"fmt"
	"strings"
)

const listenerSystem = "You are a meticulous transcript quality reviewer. " +
	"You listen to audio and compare it against a timestamped, speaker-labelled transcript."

const reviewerSystem = "You are a skeptical second reviewer. " +
	"You keep only the claims that the evidence supports."

func buildListenerPrompt(segmentsJSON []byte) string {
	var sb strings.Builder

	sb.WriteString("Listen to the attached audio and check the transcript segments below against it.\n\n")
	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString("1. Segments are numbered from 1 in the order given.\n")
	sb.WriteString("2. Report words that were misheard, dropped or invented, speech with no segment, ")
	sb.WriteString("segments attributed to the wrong speaker and timestamps that drift from the audio.\n")
	sb.WriteString("3. Use a short PascalCase code per problem, for example MisheardWords, ")
	sb.WriteString("SpeakerMisattribution, MissingSpeech, TimestampDrift, TimestampOverlap or PossibleMissingSegment.\n")
	sb.WriteString("4. Return ONLY a JSON array. Each object has 'code', 'segments' (array of segment numbers), ")
	sb.WriteString("'detail' and 'severity' ('error' or 'warning').\n")
	sb.WriteString("5. Return [] when the transcript is accurate. Do not add markdown formatting.\n\n")

	sb.WriteString("Transcript segments:\n")
	sb.Write(segmentsJSON)

	return sb.String()
}

func buildReviewerPrompt(segmentsJSON, claimsJSON, reportJSON []byte) string {
	var sb strings.Builder

	sb.WriteString("Another reviewer listened to a recording and raised the numbered claims below ")
	sb.WriteString("about its transcript. A deterministic checker also produced a report from the timestamps.\n\n")
	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString("1. Decide for every claim whether it should be upheld.\n")
	sb.WriteString("2. Where a claim is about timing, trust the deterministic report over the claim.\n")
	sb.WriteString("3. Return ONLY a JSON array of objects with 'id', 'upheld' (boolean) and 'reason'.\n")
	sb.WriteString("4. Do not add any explanation or markdown formatting.\n\n")

	fmt.Fprintf(&sb, "Claims:\n%s\n\n", claimsJSON)
	fmt.Fprintf(&sb, "Deterministic report:\n%s\n\n", reportJSON)
	fmt.Fprintf(&sb, "Transcript segments:\n%s", segmentsJSON)

	return sb.String()
}

func buildDraftPrompt(language, extra string) string {
	var sb strings.Builder

	sb.WriteString("Transcribe this audio verbatim. ")
	sb.WriteString("Keep every filler word, false start, repetition and stutter exactly as spoken. ")
	sb.WriteString("Do not correct grammar. ")
	sb.WriteString("Start a new line whenever the speaker changes and prefix each line with a speaker label like 'Speaker 1:'. ")

	if language != "" {
		fmt.Fprintf(&sb, "The audio is in %s. ", language)
	}
	if extra != "" {
		sb.WriteString(extra)
		sb.WriteString(" ")
	}

	sb.WriteString("Return only the transcript text.")

	return sb.String()
}

func buildAlignPrompt(text string) string {
	var sb strings.Builder

	sb.WriteString("Align the corrected transcript below to the attached audio.\n\n")
	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString("1. Do not change a single word of the transcript.\n")
	sb.WriteString("2. Split it into segments at sentence or speaker boundaries.\n")
	sb.WriteString("3. Each segment has 'start' and 'end' in seconds (numbers), 'speaker' and 'transcription'.\n")
	sb.WriteString("4. Segments must be in order and must not overlap.\n")
	sb.WriteString("5. Keep the speaker labels used in the transcript.\n")
	sb.WriteString("6. Return ONLY a JSON object with 'num_speakers' and a 'segments' array. No markdown.\n\n")

	sb.WriteString("Corrected transcript:\n")
	sb.WriteString(text)

	return sb.String()
}

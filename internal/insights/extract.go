package insights

import "errors"

var errNoJSON = errors.New("no JSON object in response")

// ExtractJSON pulls the JSON object out of a model response. The service
// returns free text that embeds a JSON object; the scan is greedy, taking
// everything from the first opening brace to the last closing brace, which
// also strips markdown code fences around the payload.
func ExtractJSON(text string) (string, error) {
	start := -1
	end := -1
	for i, r := range text {
		if r == '{' {
			start = i
			break
		}
	}
	for i := len(text) - 1; i >= 0; i-- {
		if text[i] == '}' {
			end = i
			break
		}
	}
	if start == -1 || end == -1 || end < start {
		return "", errNoJSON
	}
	return text[start : end+1], nil
}

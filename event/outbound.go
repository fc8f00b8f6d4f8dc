package event

import "github.com/tidwall/sjson"

// Instruction builds the outbound payload for a plain instruction:
// {"instruction": text}.
func Instruction(text string) ([]byte, error) {
	return sjson.SetBytes([]byte(`{}`), "instruction", text)
}

// ClarificationAnswer builds the outbound payload for answering a
// clarification or submitting filter refinements. clarificationType is
// omitted when empty.
func ClarificationAnswer(value, clarificationType string) ([]byte, error) {
	payload, err := sjson.SetBytes([]byte(`{}`), "instruction", value)
	if err != nil {
		return nil, err
	}
	payload, err = sjson.SetBytes(payload, "is_clarification", true)
	if err != nil {
		return nil, err
	}
	payload, err = sjson.SetBytes(payload, "value", value)
	if err != nil {
		return nil, err
	}
	if clarificationType != "" {
		payload, err = sjson.SetBytes(payload, "clarification_type", clarificationType)
		if err != nil {
			return nil, err
		}
	}
	return payload, nil
}

package converter

import "fmt"

// ConversionMode selects which workflow is active. Exactly one is active at a
// time and it decides which workflow's fields are meaningful.
type ConversionMode int

const (
	ModeTextToSpeech ConversionMode = iota
	ModeSpeechToText
)

func (m ConversionMode) String() string {
	switch m {
	case ModeTextToSpeech:
		return "text-to-speech"
	case ModeSpeechToText:
		return "speech-to-text"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func (m ConversionMode) Valid() bool {
	return m == ModeTextToSpeech || m == ModeSpeechToText
}

func (m ConversionMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid conversion mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *ConversionMode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode accepts the dashed names used by the UI as well as the short forms
// "tts" and "asr".
func ParseMode(s string) (ConversionMode, error) {
	switch s {
	case "text-to-speech", "tts":
		return ModeTextToSpeech, nil
	case "speech-to-text", "asr", "stt":
		return ModeSpeechToText, nil
	}
	return 0, fmt.Errorf("unknown conversion mode %q", s)
}

// Package audio captures meeting recordings through an ffmpeg subprocess.
package audio

// InterruptionMode says how the recording treats audio from other applications.
type InterruptionMode string

// DuckOthers lowers other applications' volume while recording instead of stopping them.
const DuckOthers InterruptionMode = "duck_others"

// SessionMode is the audio session configuration applied once at startup.
type SessionMode struct {
	AllowsRecording        bool
	PlaysInSilentMode      bool
	ShouldPlayInBackground bool
	InterruptionMode       InterruptionMode
}

// DefaultSessionMode keeps recording while the terminal is backgrounded and ducks other audio.
func DefaultSessionMode() SessionMode {
	return SessionMode{
		AllowsRecording:        true,
		PlaysInSilentMode:      true,
		ShouldPlayInBackground: true,
		InterruptionMode:       DuckOthers,
	}
}

// Unsupported lists the requested settings an ffmpeg capture cannot honour: it plays no
// audio and leaves other applications' volume alone.
func (m SessionMode) Unsupported() []string {
	var out []string
	if m.PlaysInSilentMode {
		out = append(out, "plays_in_silent_mode")
	}
	if m.InterruptionMode != "" {
		out = append(out, "interruption_mode="+string(m.InterruptionMode))
	}
	return out
}

// Preset describes the encoded output.
type Preset struct {
	Extension  string
	Codec      string
	Container  string
	SampleRate int
	Channels   int
	BitRate    int
}

// HighQualityPreset is AAC in an MP4 container at 44.1 kHz stereo, 128 kbit/s.
var HighQualityPreset = Preset{
	Extension:  ".m4a",
	Codec:      "aac",
	Container:  "mp4",
	SampleRate: 44100,
	Channels:   2,
	BitRate:    128000,
}

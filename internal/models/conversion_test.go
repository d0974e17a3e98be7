package models

import "testing"

func TestAudioFileFormat(t *testing.T) {
	tests := []struct {
		name string
		file AudioFile
		want string
	}{
		{name: "extension", file: AudioFile{Name: "memo.WAV"}, want: "wav"},
		{name: "extension alias", file: AudioFile{Name: "voice.mpeg", ContentType: "audio/mpeg"}, want: "mp3"},
		{name: "non-audio extension uses content type", file: AudioFile{Name: "rec.2024", ContentType: "audio/mpeg"}, want: "mp3"},
		{name: "no extension", file: AudioFile{Name: "recording", ContentType: "audio/ogg; codecs=opus"}, want: "ogg"},
		{name: "unknown pair keeps extension", file: AudioFile{Name: "notes.txt", ContentType: "text/plain"}, want: "txt"},
		{name: "nothing known", file: AudioFile{Name: "blob", ContentType: "video/mp4"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.file.Format(); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAudioFileUploadName(t *testing.T) {
	tests := []struct {
		file AudioFile
		want string
	}{
		{file: AudioFile{Name: "memo.m4a"}, want: "memo.m4a"},
		{file: AudioFile{Name: "rec.2024", ContentType: "audio/mpeg"}, want: "rec.2024.mp3"},
		{file: AudioFile{Name: "recording", ContentType: "audio/webm"}, want: "recording.webm"},
		{file: AudioFile{ContentType: "audio/wav"}, want: "audio.wav"},
		{file: AudioFile{Name: "notes.txt"}, want: "notes.txt"},
	}

	for _, tt := range tests {
		if got := tt.file.UploadName(); got != tt.want {
			t.Errorf("%+v: UploadName() = %q, want %q", tt.file, got, tt.want)
		}
	}
}

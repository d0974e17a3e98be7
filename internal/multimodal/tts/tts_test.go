package tts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestOpenAISynthesize(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3-audio"))
	}))
	defer srv.Close()

	p := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	res, err := p.Synthesize(context.Background(), SynthesisRequest{Input: "hello", Voice: "nova", Speed: 1.25})
	if err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}

	if string(res.Audio) != "ID3-audio" || res.Extension != "mp3" || res.ContentType != "audio/mpeg" {
		t.Fatalf("unexpected result %+v", res)
	}
	if body["input"] != "hello" || body["voice"] != "nova" || body["model"] != "tts-1" || body["speed"] != 1.25 {
		t.Fatalf("unexpected request body %v", body)
	}
}

func TestOpenAIVoices(t *testing.T) {
	voices := NewOpenAI(OpenAIConfig{}).Voices()
	if len(voices) == 0 || voices[0].ID != "alloy" || voices[0].DisplayName != "Alloy" {
		t.Fatalf("unexpected voices %+v", voices)
	}
}

func TestLocalSynthesize(t *testing.T) {
	l := NewLocal(LocalConfig{ModelPath: "/models/en_US-amy-medium.onnx"})

	var gotArgs []string
	var gotInput string
	l.run = func(_ context.Context, name string, args []string, stdin io.Reader) error {
		gotArgs = args
		in, _ := io.ReadAll(stdin)
		gotInput = string(in)
		for i, a := range args {
			if a == "--output_file" {
				return os.WriteFile(args[i+1], []byte("RIFFwav"), 0o600)
			}
		}
		return errors.New("no output file flag")
	}

	res, err := l.Synthesize(context.Background(), SynthesisRequest{Input: "hi there", Speed: 2})
	if err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}
	if string(res.Audio) != "RIFFwav" || res.Extension != "wav" {
		t.Fatalf("unexpected result %+v", res)
	}
	if gotInput != "hi there" {
		t.Fatalf("unexpected stdin %q", gotInput)
	}
	if gotArgs[len(gotArgs)-2] != "--length_scale" || gotArgs[len(gotArgs)-1] != "0.500" {
		t.Fatalf("unexpected args %v", gotArgs)
	}

	if v := l.Voices(); len(v) != 1 || v[0].ID != "en_US-amy-medium" {
		t.Fatalf("unexpected voices %+v", v)
	}
}

func TestLocalRequiresModel(t *testing.T) {
	if _, err := NewLocal(LocalConfig{}).Synthesize(context.Background(), SynthesisRequest{Input: "x"}); err == nil {
		t.Fatal("expected error without model")
	}
}

package usecase

import (
	"context"
	"os"
	"sync"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
)

type completionCall struct {
	Messages []repositories.ChatMessage
	Options  repositories.CompletionOptions
}

// fakeLLM answers every completion with reply or err and records the calls
type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	replies []string
	calls   []completionCall
}

func (f *fakeLLM) Complete(ctx context.Context, messages []repositories.ChatMessage, options repositories.CompletionOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, completionCall{Messages: messages, Options: options})
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) > 0 {
		reply := f.replies[0]
		f.replies = f.replies[1:]
		return reply, nil
	}
	return f.reply, nil
}

type fakeClassifier struct {
	result entities.EmotionResult
	err    error
	calls  int
}

func (f *fakeClassifier) ClassifyImage(ctx context.Context, image []byte) (entities.EmotionResult, error) {
	f.calls++
	return f.result, f.err
}

// fakeSTT records the path it was given and whether the file existed then
type fakeSTT struct {
	transcript string
	err        error
	paths      []string
	existed    bool
	config     repositories.AudioConfig
}

func (f *fakeSTT) TranscribeFile(ctx context.Context, path string, config repositories.AudioConfig) (string, error) {
	f.paths = append(f.paths, path)
	_, statErr := os.Stat(path)
	f.existed = statErr == nil
	f.config = config
	return f.transcript, f.err
}

type synthesisCall struct {
	Text   string
	Config repositories.VoiceConfig
}

type fakeTTS struct {
	audio []byte
	errs  []error
	calls []synthesisCall
}

func (f *fakeTTS) SynthesizeAudio(ctx context.Context, text string, config repositories.VoiceConfig) ([]byte, error) {
	f.calls = append(f.calls, synthesisCall{Text: text, Config: config})
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.audio, nil
}

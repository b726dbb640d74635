// Package config loads the interview question bank and persona text.
//
// The bank is YAML so researchers can swap questions and persona wording
// without touching code. A default bank is embedded in the binary; the
// INTERVIEWPIPE_BANK environment variable or the -bank flag points at an
// override file.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danualab/InterviewPipe/internal/models"
)

//go:embed bank_default.yaml
var defaultBank []byte

// Bank is the full interview configuration document.
type Bank struct {
	Persona   Persona    `yaml:"persona"`
	Messages  Messages   `yaml:"messages"`
	Questions []Question `yaml:"questions"`
}

// Persona describes the bot identity and the canned replies for questions
// about it.
type Persona struct {
	Name             string   `yaml:"name"`
	SystemPrompt     string   `yaml:"system_prompt"`
	IdentityResponse string   `yaml:"identity_response"`
	SystemResponse   string   `yaml:"system_response"`
	IdentityKeywords []string `yaml:"identity_keywords"`
	SystemKeywords   []string `yaml:"system_keywords"`
}

// Messages holds the fixed conversation texts around the questions.
type Messages struct {
	Introduction   string   `yaml:"introduction"`
	Completion     string   `yaml:"completion"`
	Encouragements []string `yaml:"encouragements"`
}

// Question is one bank entry.
type Question struct {
	Text             string   `yaml:"text"`
	Topic            string   `yaml:"topic"`
	RequiredElements []string `yaml:"required_elements"`
}

// Load reads the bank from path, or the embedded default when path is empty.
func Load(path string) (*Bank, error) {
	data := defaultBank
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read question bank: %w", err)
		}
		data = b
	}

	var bank Bank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("failed to parse question bank: %w", err)
	}
	if err := bank.Validate(); err != nil {
		return nil, err
	}
	return &bank, nil
}

// Validate checks that the bank carries everything the interview needs.
func (b *Bank) Validate() error {
	if b.Persona.Name == "" {
		return fmt.Errorf("persona: name is required")
	}
	if b.Messages.Introduction == "" {
		return fmt.Errorf("messages: introduction is required")
	}
	if b.Messages.Completion == "" {
		return fmt.Errorf("messages: completion is required")
	}
	if len(b.Questions) == 0 {
		return models.ErrEmptyQuestionBank
	}
	for i, q := range b.Questions {
		mq := models.Question{Text: q.Text, Topic: q.Topic, RequiredElements: q.RequiredElements}
		if err := mq.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}

// ModelQuestions converts the bank entries into domain questions.
func (b *Bank) ModelQuestions() []models.Question {
	out := make([]models.Question, len(b.Questions))
	for i, q := range b.Questions {
		out[i] = models.Question{
			Text:             q.Text,
			Topic:            q.Topic,
			RequiredElements: append([]string(nil), q.RequiredElements...),
		}
	}
	return out
}

// Encouragement returns the transition phrase for the given zero-based
// question index, rotating through the configured list.
func (b *Bank) Encouragement(idx int) string {
	if len(b.Messages.Encouragements) == 0 || idx < 0 {
		return ""
	}
	return b.Messages.Encouragements[idx%len(b.Messages.Encouragements)]
}

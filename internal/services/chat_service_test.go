package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuestion(t *testing.T) {
	tests := []struct {
		name                        string
		question, country, warfare string
		want                        string
	}{
		{"no filters", "What is hybrid warfare?", "All", "All", "What is hybrid warfare?"},
		{"empty filters", "What is hybrid warfare?", "", "", "What is hybrid warfare?"},
		{"country", "Explain air doctrine", "China", "All", "Explain air doctrine (Focus on China)"},
		{"warfare", "Explain the doctrine", "All", "Naval", "Explain the doctrine regarding Naval warfare"},
		{"both", "Compare strategies", "Russia", "Cyber", "Compare strategies (Focus on Russia) regarding Cyber warfare"},
		{"alias USA", "Compare the naval strategies of China and USA", "All", "All", "Compare the naval strategies of China and America"},
		{"alias long form", "What does the United States of America plan?", "", "", "What does the America plan?"},
		{"alias any case", "how does the united states fight", "", "", "how does the America fight"},
		{"no partial alias", "Who defended Jerusalem in 1967?", "", "", "Who defended Jerusalem in 1967?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuestion(tt.question, tt.country, tt.warfare))
		})
	}
}

func TestChatService_Ask(t *testing.T) {
	kb := &fakeKB{answer: "Sea denial within the first island chain."}
	svc := NewChatService(kb)

	answer, err := svc.Ask(context.Background(), "Describe naval doctrine", "China", "Naval")
	require.NoError(t, err)
	assert.Equal(t, "Sea denial within the first island chain.", answer)
	assert.Equal(t, []string{"Describe naval doctrine (Focus on China) regarding Naval warfare"}, kb.questions)
}

func TestChatService_AskError(t *testing.T) {
	kb := &fakeKB{err: errors.New("agent unavailable")}

	_, err := NewChatService(kb).Ask(context.Background(), "q", "", "")
	assert.EqualError(t, err, "agent unavailable")
}

func TestChatService_Search(t *testing.T) {
	kb := &fakeKB{}
	svc := NewChatService(kb)

	_, err := svc.Search(context.Background(), "carrier groups", "USA", 3)
	require.NoError(t, err)
	assert.Equal(t, "America", kb.country)

	_, err = svc.Search(context.Background(), "carrier groups", "all", 3)
	require.NoError(t, err)
	assert.Empty(t, kb.country)
}

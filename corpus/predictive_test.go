package corpus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paranoid-AF/surmiser"
)

func suggest(t *testing.T, p *Predictive, text string, segmentStart int) *surmiser.Suggestion {
	t.Helper()
	sc := surmiser.BuildContext(text, len(text))
	sc.SegmentStart = segmentStart
	s, err := p.Suggest(context.Background(), sc)
	require.NoError(t, err)
	return s
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"Hello, world.", []string{"hello,", "world."}},
		{"don't stop", []string{"don't", "stop"}},
		{"well-known fact", []string{"well-known", "fact"}},
		{"wait...", []string{"wait..."}},
		{"(a)", []string{"(", "a", ")"}},
		{"? start", []string{"?", "start"}},
		{"  spaced   out  ", []string{"spaced", "out"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.input))
		})
	}
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "hello there", NormalizeText("  Hello There \n"))
}

func TestPredictiveMidWord(t *testing.T) {
	p := NewPredictive([]string{"Good morning everyone"})

	s := suggest(t, p, "good mor", 0)
	require.NotNil(t, s)
	assert.Equal(t, "ning everyone", s.Completion)
	assert.InDelta(t, 0.80, s.Confidence, 1e-9)
	assert.Equal(t, ProviderID, s.ProviderID)
}

func TestPredictiveAfterSpace(t *testing.T) {
	p := NewPredictive([]string{"Good morning everyone"})

	s := suggest(t, p, "good morning ", 0)
	require.NotNil(t, s)
	assert.Equal(t, "everyone", s.Completion)
}

func TestPredictiveSingleFreshToken(t *testing.T) {
	p := NewPredictive([]string{"Good morning everyone"})

	s := suggest(t, p, "Good", 0)
	require.NotNil(t, s)
	assert.Equal(t, " morning everyone", s.Completion)
	assert.InDelta(t, 0.75, s.Confidence, 1e-9)

	assert.Nil(t, suggest(t, p, "g", 0), "single character tokens are too short")
}

func TestPredictiveThreeTokenMatch(t *testing.T) {
	p := NewPredictive([]string{"I hope you are well"})

	s := suggest(t, p, "I hope you a", 0)
	require.NotNil(t, s)
	assert.Equal(t, "re well", s.Completion)
	assert.InDelta(t, 0.85, s.Confidence, 1e-9)
}

func TestPredictiveDiscardsOneLeadingToken(t *testing.T) {
	p := NewPredictive([]string{"good morning everyone"})

	s := suggest(t, p, "well good mor", 0)
	require.NotNil(t, s)
	assert.Equal(t, "ning everyone", s.Completion)

	assert.Nil(t, suggest(t, p, "oh well good mor", 0), "two leading tokens cannot be discarded")
}

func TestPredictiveSegmentStart(t *testing.T) {
	p := NewPredictive([]string{"good morning everyone"})

	s := suggest(t, p, "hello there good mor", 2)
	require.NotNil(t, s)
	assert.Equal(t, "ning everyone", s.Completion)

	assert.Nil(t, suggest(t, p, "hello there good", 2), "a lone token after a boundary needs more context")
	assert.Nil(t, suggest(t, p, "hello there", 5), "boundary past the input leaves no segment")
}

func TestPredictivePunctuationReset(t *testing.T) {
	p := NewPredictive([]string{"good morning everyone"})

	s := suggest(t, p, "Hi there. Good", 0)
	require.NotNil(t, s)
	assert.Equal(t, " morning everyone", s.Completion)

	s = suggest(t, p, "Hi there. Good", 3)
	require.NotNil(t, s, "sentence punctuation wins over the segment start")
}

func TestPredictiveSkipsExhaustedPhrase(t *testing.T) {
	p := NewPredictive([]string{"good morning", "good morning everyone"})

	s := suggest(t, p, "good morning", 0)
	require.NotNil(t, s)
	assert.Equal(t, " everyone", s.Completion)
}

func TestPredictiveNoMatch(t *testing.T) {
	p := NewPredictive([]string{"good morning everyone"})

	assert.Nil(t, suggest(t, p, "", 0))
	assert.Nil(t, suggest(t, p, "   ", 0))
	assert.Nil(t, suggest(t, p, "bad mor", 0))
	assert.Nil(t, suggest(t, p, "good morning everyone", 0))
}

func TestPredictiveUsesTextBeforeCursor(t *testing.T) {
	p := NewPredictive([]string{"good morning everyone"})

	sc := surmiser.BuildContext("good mor xyz", 8)
	s, err := p.Suggest(context.Background(), sc)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "ning everyone", s.Completion)
}

func TestPredictiveCancelled(t *testing.T) {
	p := NewPredictive([]string{"good morning everyone"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := p.Suggest(ctx, surmiser.BuildContext("good mor", 8))
	assert.Nil(t, s)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPredictiveSetPhrases(t *testing.T) {
	p := NewPredictive([]string{"good morning everyone", "  ", "good night"})
	assert.Equal(t, 2, p.Len())

	p.SetPhrases([]string{"good evening friends"})
	assert.Equal(t, 1, p.Len())
	s := suggest(t, p, "good eve", 0)
	require.NotNil(t, s)
	assert.Equal(t, "ning friends", s.Completion)
	assert.Nil(t, suggest(t, p, "good mor", 0))
}

func TestDefaultCorpusProvider(t *testing.T) {
	p := Default()
	assert.Positive(t, p.Len())
	assert.Equal(t, ProviderID, p.ID())
	assert.Equal(t, surmiser.DefaultPriority, p.Priority())
}

func TestSegmentMatchLengths(t *testing.T) {
	seg := NewSegment("one two three", 0)
	assert.Equal(t, []int{3, 2}, seg.MatchLengths())

	seg = NewSegment("a b c d e f g h", 0)
	assert.Len(t, seg.Tokens, ContextWindow)
	assert.False(t, seg.Fresh)
	assert.True(t, seg.Usable())

	seg = NewSegment("hi", 0)
	assert.Equal(t, []int{1}, seg.MatchLengths())
	assert.True(t, seg.MidWord)
	assert.True(t, seg.Fresh)
}

package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrectAnswer_DecodeSingle(t *testing.T) {
	var ca CorrectAnswer
	require.NoError(t, json.Unmarshal([]byte(`2`), &ca))

	assert.False(t, ca.IsMulti())
	assert.True(t, ca.Matches(2))
	assert.False(t, ca.Matches(0))
}

func TestCorrectAnswer_DecodeMulti(t *testing.T) {
	var ca CorrectAnswer
	require.NoError(t, json.Unmarshal([]byte(`[0, 3]`), &ca))

	assert.True(t, ca.IsMulti())
	assert.True(t, ca.Matches(0))
	assert.True(t, ca.Matches(3))
	assert.False(t, ca.Matches(1))
}

func TestCorrectAnswer_RoundTrip(t *testing.T) {
	single := CorrectAnswer{Single: 1}
	data, err := json.Marshal(single)
	require.NoError(t, err)
	assert.Equal(t, `1`, string(data))

	multi := CorrectAnswer{Multi: []int{0, 2}}
	data, err = json.Marshal(multi)
	require.NoError(t, err)
	assert.Equal(t, `[0,2]`, string(data))
}

func TestCorrectAnswer_ValidateBounds(t *testing.T) {
	ca := CorrectAnswer{Single: 4}
	assert.Error(t, ca.Validate(4))

	ca = CorrectAnswer{Single: 3}
	assert.NoError(t, ca.Validate(4))

	ca = CorrectAnswer{Multi: []int{0, 5}}
	assert.Error(t, ca.Validate(4))
}

func TestPoints_DecodeVariants(t *testing.T) {
	tests := []struct {
		raw    string
		weight int
	}{
		{`"standard"`, 1000},
		{`"double"`, 2000},
		{`"noPoints"`, 0},
		{`1500`, 1500},
	}

	for _, tt := range tests {
		var p Points
		require.NoError(t, json.Unmarshal([]byte(tt.raw), &p), tt.raw)
		assert.Equal(t, tt.weight, p.Weight(), tt.raw)
	}
}

func TestPoints_RejectUnknownLabel(t *testing.T) {
	// Неизвестные строки отклоняются на этапе создания викторины,
	// а не молча превращаются в standard при подсчете очков
	var p Points
	assert.Error(t, json.Unmarshal([]byte(`"triple"`), &p))
}

func TestQuestion_Validate(t *testing.T) {
	q := Question{
		Question:      "2+2?",
		Options:       StringArray{"3", "4"},
		CorrectAnswer: CorrectAnswer{Single: 1},
		TimeLimit:     30,
	}
	assert.NoError(t, q.Validate())

	q.Options = StringArray{"4"}
	assert.Error(t, q.Validate())

	q.Options = StringArray{"3", "4"}
	q.TimeLimit = -1
	assert.Error(t, q.Validate())
}

func TestQuestion_SafeViewHidesCorrectAnswer(t *testing.T) {
	q := Question{
		QuizCode:      "ABCD23",
		Index:         0,
		Question:      "2+2?",
		Options:       StringArray{"3", "4"},
		CorrectAnswer: CorrectAnswer{Single: 1},
		TimeLimit:     30,
		Points:        Points{Label: "standard"},
	}

	view := q.SafeView()
	assert.NotContains(t, view, "correctAnswer")
	assert.Equal(t, "2+2?", view["question"])
}

func TestAnswerList_CurrentStreak(t *testing.T) {
	list := AnswerList{
		{QuestionIndex: 0, IsCorrect: true},
		{QuestionIndex: 1, IsCorrect: false},
		{QuestionIndex: 2, IsCorrect: true},
		{QuestionIndex: 3, IsCorrect: true},
	}

	assert.Equal(t, 2, list.CurrentStreak())
	assert.True(t, list.HasAnswered(1))
	assert.False(t, list.HasAnswered(4))
}

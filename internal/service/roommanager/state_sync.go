package roommanager

import (
	"github.com/yourusername/prashnify-api/internal/websocket"
)

// BuildSyncState собирает полный кадр sync_state для восстановления
// клиента: снимок комнаты, данные текущего вопроса (без правильного
// ответа для участников) и подсказки перехода для фаз лидерборда и
// подиума.
func (c *Controller) BuildSyncState(code string, isAdmin bool) (websocket.Message, error) {
	now := c.clk.NowMs()
	snapshot := c.hub.Snapshot(code)

	sync := websocket.Message{"type": websocket.TypeSyncState}
	for k, v := range snapshot {
		sync[k] = v
	}

	phase := websocket.Phase(snapshot["quiz_state"].(string))
	currentIdx, _ := snapshot["current_question"].(int)
	sync["question_number"] = currentIdx + 1
	sync["server_time"] = now

	// Данные текущего вопроса нужны только в фазах вопроса и показа ответа
	var questionData interface{}
	if phase == websocket.PhaseQuestion || phase == websocket.PhaseAnswerReveal {
		questions, err := c.quizService.GetQuestions(code)
		if err != nil {
			return nil, err
		}
		if currentIdx < len(questions) {
			q := questions[currentIdx]
			if isAdmin {
				questionData = q
			} else {
				questionData = q.SafeView()
			}
		}
	}
	sync["current_question_data"] = questionData
	sync["question"] = questionData

	switch phase {
	case websocket.PhaseLeaderboard, websocket.PhaseFinalLeaderboard:
		sync["redirect_leaderboard"] = true
		sync["is_final"] = phase == websocket.PhaseFinalLeaderboard
	case websocket.PhasePodium:
		sync["redirect_podium"] = true
	}

	return sync, nil
}

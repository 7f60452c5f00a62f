package service

import (
	"github.com/yourusername/prashnify-api/internal/domain/entity"
)

// ScoreBreakdown содержит разбивку начисленных очков за один ответ
type ScoreBreakdown struct {
	BasePoints  int `json:"basePoints"`
	TimeBonus   int `json:"timeBonus"`
	StreakBonus int `json:"streakBonus"`
}

// Total возвращает суммарные очки за ответ
func (b ScoreBreakdown) Total() int {
	return b.BasePoints + b.TimeBonus + b.StreakBonus
}

// CalculatePoints вычисляет очки за ответ в стиле Kahoot:
//   - база: половина веса вопроса;
//   - бонус за скорость: квадратичное затухание (1 - t/limit)^2,
//     быстрые ответы вознаграждаются непропорционально сильно;
//   - бонус за серию: процент от базы+скорости (2 подряд +5%, 3 +10%, 4 +20%, 5+ +30%);
//   - бонус за позицию: первый правильный ответ +5, второй +4 и т.д. (максимум 5),
//     складывается в TimeBonus.
//
// Гранулярные очки естественным образом минимизируют ничьи.
// answerPosition - число правильных ответов, уже принятых на этот вопрос.
func CalculatePoints(question *entity.Question, correct bool, timeTaken float64, previous entity.AnswerList, answerPosition int) ScoreBreakdown {
	if !correct {
		return ScoreBreakdown{}
	}

	maxBase := question.Points.Weight()
	if maxBase == 0 {
		return ScoreBreakdown{}
	}

	timeLimit := question.TimeLimit
	if timeLimit == 0 {
		// Вопрос без таймера: полный вес без бонусов
		return ScoreBreakdown{BasePoints: maxBase}
	}

	basePoints := maxBase / 2

	var timeBonus int
	switch {
	case timeTaken < 0.3:
		timeBonus = maxBase / 2
	case timeTaken >= float64(timeLimit):
		timeBonus = 0
	default:
		timeRatio := timeTaken / float64(timeLimit)
		if timeRatio > 1.0 {
			timeRatio = 1.0
		}
		timeBonus = int(float64(maxBase/2) * (1 - timeRatio) * (1 - timeRatio))
	}

	// Серия: предыдущие подряд правильные + текущий правильный ответ
	currentStreak := previous.CurrentStreak() + 1
	subtotal := basePoints + timeBonus

	var streakBonus int
	switch {
	case currentStreak >= 5:
		streakBonus = int(float64(subtotal) * 0.30)
	case currentStreak >= 4:
		streakBonus = int(float64(subtotal) * 0.20)
	case currentStreak >= 3:
		streakBonus = int(float64(subtotal) * 0.10)
	case currentStreak >= 2:
		streakBonus = int(float64(subtotal) * 0.05)
	}

	// Позиционный бонус создает естественный тайбрейк, даже когда два
	// игрока ответили одинаково быстро
	positionBonus := 6 - answerPosition - 1
	if answerPosition+1 > 6 {
		positionBonus = 0
	}
	if positionBonus < 0 {
		positionBonus = 0
	}
	timeBonus += positionBonus

	return ScoreBreakdown{
		BasePoints:  basePoints,
		TimeBonus:   timeBonus,
		StreakBonus: streakBonus,
	}
}

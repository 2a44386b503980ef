package classifier

import (
	"fmt"

	"github.com/shenikar/incident_triage/internal/models"
	"github.com/sirupsen/logrus"
)

// spamLabels - метки положительного класса в спам-модели
var spamLabels = []string{"1", "spam", "true"}

// Verdict - результат классификации текста при приеме отчета
type Verdict struct {
	Spam bool
	// SpamScore - вероятность спама по модели, 0 при недоступной модели
	SpamScore float64
	Category  string
	// Degraded выставляется, если вместо предсказания использовано значение по умолчанию
	Degraded   bool
	Suspicious bool
}

// Gateway объединяет спам-модель и модель категорий за единым интерфейсом.
// Любая из моделей может отсутствовать.
type Gateway struct {
	spam     *Model
	category *Model
	spamIdx  int
}

// NewGateway создает шлюз из уже загруженных моделей (nil - модель недоступна)
func NewGateway(spam, category *Model) (*Gateway, error) {
	g := &Gateway{spam: spam, category: category, spamIdx: -1}
	if spam != nil {
		g.spamIdx = spam.classIndex(spamLabels...)
		if g.spamIdx < 0 {
			return nil, fmt.Errorf("spam model has no positive class among %v: %v", spamLabels, spam.Classes)
		}
	}
	return g, nil
}

// LoadGateway загружает модели с диска. Ошибка загрузки не фатальна: модель считается недоступной.
func LoadGateway(spamPath, categoryPath string, log *logrus.Logger) *Gateway {
	spam := loadOptional(spamPath, "spam", log)
	category := loadOptional(categoryPath, "category", log)

	g, err := NewGateway(spam, category)
	if err != nil {
		log.WithError(err).Warn("Spam model rejected, running without it")
		g, _ = NewGateway(nil, category)
	}
	return g
}

func loadOptional(path, kind string, log *logrus.Logger) *Model {
	l := log.WithField("model", kind)
	if path == "" {
		l.Warn("Model path is not configured, classifier degraded")
		return nil
	}
	m, err := LoadModel(path)
	if err != nil {
		l.WithError(err).Warn("Failed to load model, classifier degraded")
		return nil
	}
	l.WithField("classes", len(m.Classes)).Info("Model loaded")
	return m
}

// SpamAvailable - загружена ли спам-модель
func (g *Gateway) SpamAvailable() bool { return g.spam != nil }

// CategoryAvailable - загружена ли модель категорий
func (g *Gateway) CategoryAvailable() bool { return g.category != nil }

// ClassifySpam возвращает true, если текст похож на спам
func (g *Gateway) ClassifySpam(text string) (bool, error) {
	if g.spam == nil {
		return false, models.ErrClassifierUnavailable
	}
	return g.spam.Predict(text) == g.spam.Classes[g.spamIdx], nil
}

// SpamProbability возвращает вероятность того, что текст - спам
func (g *Gateway) SpamProbability(text string) (float64, error) {
	if g.spam == nil {
		return 0, models.ErrClassifierUnavailable
	}
	return g.spam.PredictProba(text)[g.spamIdx], nil
}

// ClassifyCategory возвращает категорию инцидента
func (g *Gateway) ClassifyCategory(text string) (string, error) {
	if g.category == nil {
		return models.UnknownCategory, models.ErrClassifierUnavailable
	}
	return g.category.Predict(text), nil
}

// Classify выполняет обе классификации с откатом на значения по умолчанию
func (g *Gateway) Classify(text string) Verdict {
	v := Verdict{Category: models.UnknownCategory, Suspicious: Suspicious(text)}

	spam, err := g.ClassifySpam(text)
	if err != nil {
		v.Degraded = true
	} else {
		v.Spam = spam
		v.SpamScore, _ = g.SpamProbability(text)
	}

	category, err := g.ClassifyCategory(text)
	if err != nil {
		v.Degraded = true
	} else {
		v.Category = category
	}
	return v
}

package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
)

// tokenPattern повторяет токенизацию векторизатора, на котором обучались модели:
// последовательности из двух и более буквенно-цифровых символов
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Model - экспорт обученного мультиномиального наивного байесовского классификатора.
// Обучение моделей вне этого сервиса, здесь только вывод.
type Model struct {
	Classes        []string       `json:"classes"`
	ClassLogPrior  []float64      `json:"class_log_prior"`
	FeatureLogProb [][]float64    `json:"feature_log_prob"`
	Vocabulary     map[string]int `json:"vocabulary"`
	// IDF задан, если модель обучалась на TF-IDF признаках (с L2 нормировкой)
	IDF []float64 `json:"idf,omitempty"`
}

// LoadModel читает модель из JSON файла
func LoadModel(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file %s: %w", path, err)
	}
	m := &Model{}
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("failed to decode model file %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model %s: %w", path, err)
	}
	return m, nil
}

// Validate проверяет согласованность размерностей
func (m *Model) Validate() error {
	if len(m.Classes) == 0 {
		return errors.New("model has no classes")
	}
	if len(m.ClassLogPrior) != len(m.Classes) || len(m.FeatureLogProb) != len(m.Classes) {
		return errors.New("class dimensions mismatch")
	}
	features := len(m.FeatureLogProb[0])
	for _, row := range m.FeatureLogProb {
		if len(row) != features {
			return errors.New("feature_log_prob rows have different lengths")
		}
	}
	for token, idx := range m.Vocabulary {
		if idx < 0 || idx >= features {
			return fmt.Errorf("vocabulary index %d for %q out of range", idx, token)
		}
	}
	if m.IDF != nil && len(m.IDF) != features {
		return errors.New("idf length does not match feature count")
	}
	return nil
}

type feature struct {
	idx    int
	weight float64
}

// features строит разреженный вектор признаков текста в порядке первого появления токенов
func (m *Model) features(text string) []feature {
	var vec []feature
	pos := make(map[int]int)
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		idx, ok := m.Vocabulary[token]
		if !ok {
			continue
		}
		if p, seen := pos[idx]; seen {
			vec[p].weight++
			continue
		}
		pos[idx] = len(vec)
		vec = append(vec, feature{idx: idx, weight: 1})
	}
	if m.IDF == nil {
		return vec
	}

	var norm float64
	for i := range vec {
		vec[i].weight *= m.IDF[vec[i].idx]
		norm += vec[i].weight * vec[i].weight
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i].weight /= norm
		}
	}
	return vec
}

func (m *Model) jointLogLikelihood(text string) []float64 {
	vec := m.features(text)
	jll := make([]float64, len(m.Classes))
	for c := range m.Classes {
		score := m.ClassLogPrior[c]
		for _, f := range vec {
			score += f.weight * m.FeatureLogProb[c][f.idx]
		}
		jll[c] = score
	}
	return jll
}

// Predict возвращает наиболее вероятный класс. При равенстве побеждает класс с меньшим индексом.
func (m *Model) Predict(text string) string {
	jll := m.jointLogLikelihood(text)
	best := 0
	for c := 1; c < len(jll); c++ {
		if jll[c] > jll[best] {
			best = c
		}
	}
	return m.Classes[best]
}

// PredictProba возвращает апостериорные вероятности классов в порядке Classes
func (m *Model) PredictProba(text string) []float64 {
	jll := m.jointLogLikelihood(text)
	maxLL := math.Inf(-1)
	for _, v := range jll {
		maxLL = math.Max(maxLL, v)
	}
	var sum float64
	probs := make([]float64, len(jll))
	for i, v := range jll {
		probs[i] = math.Exp(v - maxLL)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// classIndex ищет индекс класса по одной из меток
func (m *Model) classIndex(labels ...string) int {
	for i, c := range m.Classes {
		for _, l := range labels {
			if strings.EqualFold(c, l) {
				return i
			}
		}
	}
	return -1
}

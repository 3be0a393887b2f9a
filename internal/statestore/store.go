// Пакет statestore — хранение состояния экрана формуляров между запросами.
// Ключ — идентификатор сессии оператора. Состояние хранится в виде JSON,
// поэтому каждый запрос получает собственную копию (last-write-wins).
package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
)

// ErrNotFound — состояние для ключа отсутствует или истекло.
var ErrNotFound = errors.New("состояние не найдено")

// Store — хранилище состояний экрана.
type Store interface {
	// Load возвращает состояние или ErrNotFound.
	Load(ctx context.Context, key string) (*model.WorkflowState, error)
	// Save сохраняет состояние, продлевая его срок жизни.
	Save(ctx context.Context, key string, state *model.WorkflowState) error
	// Delete удаляет состояние (выход из системы).
	Delete(ctx context.Context, key string) error
	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
}

// LoadOrNew загружает состояние или создаёт новое с размером страницы pageSize.
func LoadOrNew(ctx context.Context, s Store, key string, pageSize int) (*model.WorkflowState, error) {
	state, err := s.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return model.NewWorkflowState(pageSize), nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

func encode(state *model.WorkflowState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("кодирование состояния: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*model.WorkflowState, error) {
	var state model.WorkflowState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("декодирование состояния: %w", err)
	}
	return &state, nil
}

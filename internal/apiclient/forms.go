package apiclient

import (
	"context"
	"net/http"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
)

const formsPath = "/formulario-practica"

// formEnvelope — ответ с одним формуляром.
type formEnvelope struct {
	Formulario *model.FormRecord `json:"formulario"`
}

// formsEnvelope — ответ со списком формуляров.
type formsEnvelope struct {
	Formularios []model.FormRecord `json:"formularios"`
}

// GetForm возвращает формуляр по идентификатору.
// GET /formulario-practica/{id}
func (c *Client) GetForm(ctx context.Context, id string) (*model.FormRecord, error) {
	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	var env formEnvelope
	req.SetPathParam("id", id)
	if err := c.execute(req, "get_form", http.MethodGet, formsPath+"/{id}", &env); err != nil {
		return nil, err
	}
	if env.Formulario == nil {
		return nil, &APIError{Status: http.StatusNotFound, Message: "formulario no encontrado"}
	}
	return env.Formulario, nil
}

// ListForms возвращает все формуляры, отсортированные на стороне backend.
// GET /formulario-practica?direccion&columna
func (c *Client) ListForms(ctx context.Context, sort model.SortState) ([]model.FormRecord, error) {
	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	var env formsEnvelope
	req.SetQueryParams(sortParams(sort))
	if err := c.execute(req, "list_forms", http.MethodGet, formsPath, &env); err != nil {
		return nil, err
	}
	return env.Formularios, nil
}

// ListFormsByLocation возвращает формуляры одного места работы.
// GET /formulario-practica/lugar/{locationId}?direccion&columna
func (c *Client) ListFormsByLocation(ctx context.Context, locationID string, sort model.SortState) ([]model.FormRecord, error) {
	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	var env formsEnvelope
	req.SetPathParam("location", locationID).SetQueryParams(sortParams(sort))
	if err := c.execute(req, "list_forms_by_location", http.MethodGet, formsPath+"/lugar/{location}", &env); err != nil {
		return nil, err
	}
	return env.Formularios, nil
}

// CreateForm создаёт формуляр. Денормализованные данные человека
// передаются в query для подготовки квитанции.
// POST /formulario-practica
func (c *Client) CreateForm(ctx context.Context, in model.FormInput, query model.ReceiptQuery) (*model.FormRecord, error) {
	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	var env formEnvelope
	req.SetQueryParams(query.Values()).SetBody(in)
	if err := c.execute(req, "create_form", http.MethodPost, formsPath, &env); err != nil {
		return nil, err
	}
	if env.Formulario == nil {
		return &model.FormRecord{}, nil
	}
	return env.Formulario, nil
}

// UpdateForm частично обновляет формуляр.
// PUT /formulario-practica/{id}
func (c *Client) UpdateForm(ctx context.Context, id string, patch model.FormPatch) (*model.FormRecord, error) {
	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	var env formEnvelope
	req.SetPathParam("id", id).SetBody(patch)
	if err := c.execute(req, "update_form", http.MethodPut, formsPath+"/{id}", &env); err != nil {
		return nil, err
	}
	if env.Formulario == nil {
		return &model.FormRecord{ID: id}, nil
	}
	return env.Formulario, nil
}

// CleanupStaleForms запускает массовую очистку устаревших формуляров.
// GET /formulario-practica/antiguos/limpiar/todos
func (c *Client) CleanupStaleForms(ctx context.Context) error {
	req, err := c.authorized(ctx)
	if err != nil {
		return err
	}
	return c.execute(req, "cleanup_forms", http.MethodGet, formsPath+"/antiguos/limpiar/todos", nil)
}

// PrintForm передаёт данные для подготовки печатной формы.
// POST /formulario-practica/imprimir
func (c *Client) PrintForm(ctx context.Context, payload model.PrintPayload) error {
	req, err := c.authorized(ctx)
	if err != nil {
		return err
	}
	req.SetBody(payload)
	return c.execute(req, "print_form", http.MethodPost, formsPath+"/imprimir", nil)
}

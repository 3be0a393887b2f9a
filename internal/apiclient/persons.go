package apiclient

import (
	"context"
	"net/http"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
)

const personsPath = "/personas"

type personEnvelope struct {
	Persona *model.Person `json:"persona"`
}

type personsEnvelope struct {
	Personas []model.Person `json:"personas"`
}

// GetPerson возвращает человека по идентификатору.
// GET /personas/{id}
func (c *Client) GetPerson(ctx context.Context, id string) (*model.Person, error) {
	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	var env personEnvelope
	req.SetPathParam("id", id)
	if err := c.execute(req, "get_person", http.MethodGet, personsPath+"/{id}", &env); err != nil {
		return nil, err
	}
	if env.Persona == nil {
		return nil, &APIError{Status: http.StatusNotFound, Message: "persona no encontrada"}
	}
	return env.Persona, nil
}

// FindPersonByNationalID ищет человека по DNI.
// Возвращает nil, nil, если backend ответил {persona: null}.
// GET /personas/dni/{dni}
func (c *Client) FindPersonByNationalID(ctx context.Context, nationalID string) (*model.Person, error) {
	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	var env personEnvelope
	req.SetPathParam("dni", nationalID)
	if err := c.execute(req, "find_person", http.MethodGet, personsPath+"/dni/{dni}", &env); err != nil {
		return nil, err
	}
	if env.Persona == nil || env.Persona.IsZero() {
		return nil, nil
	}
	return env.Persona, nil
}

// ListPersons возвращает всех людей.
// GET /personas?direccion&columna
func (c *Client) ListPersons(ctx context.Context, sort model.SortState) ([]model.Person, error) {
	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	var env personsEnvelope
	req.SetQueryParams(sortParams(sort))
	if err := c.execute(req, "list_persons", http.MethodGet, personsPath, &env); err != nil {
		return nil, err
	}
	return env.Personas, nil
}

// CreatePerson создаёт человека и возвращает запись с присвоенным _id.
// POST /personas
func (c *Client) CreatePerson(ctx context.Context, draft model.PersonDraft) (*model.Person, error) {
	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	var env personEnvelope
	req.SetBody(draft)
	if err := c.execute(req, "create_person", http.MethodPost, personsPath, &env); err != nil {
		return nil, err
	}
	if env.Persona == nil || env.Persona.ID == "" {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "respuesta sin persona"}
	}
	return env.Persona, nil
}

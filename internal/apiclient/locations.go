package apiclient

import (
	"context"
	"net/http"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
)

type locationsEnvelope struct {
	Lugares []model.Location `json:"lugares"`
}

// ListLocations возвращает места работы.
// GET /lugares?direccion&columna
func (c *Client) ListLocations(ctx context.Context, sort model.SortState) ([]model.Location, error) {
	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	var env locationsEnvelope
	req.SetQueryParams(sortParams(sort))
	if err := c.execute(req, "list_locations", http.MethodGet, "/lugares", &env); err != nil {
		return nil, err
	}
	return env.Lugares, nil
}

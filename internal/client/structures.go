package client

import (
	"context"
	"fmt"
	"sort"

	"github.com/masteryee/nest-events/pkg/models"
)

// GetStructures fetches the homes on the account, sorted by name.
func (c *NestClient) GetStructures(ctx context.Context, token string) ([]models.Structure, error) {
	var respData map[string]models.Structure

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetAuthToken(token).
		SetResult(&respData).
		Get("/structures")

	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, fmt.Errorf("failed to get structures: %s", resp.String())
	}

	structures := make([]models.Structure, 0, len(respData))
	for id, s := range respData {
		if s.StructureID == "" {
			s.StructureID = id
		}
		structures = append(structures, s)
	}
	sort.Slice(structures, func(i, j int) bool {
		return structures[i].Name < structures[j].Name
	})

	return structures, nil
}

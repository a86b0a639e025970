package client

import (
	"context"
	"fmt"
	"sort"

	"github.com/masteryee/nest-events/pkg/models"
)

// GetCameras reads the current camera list once, sorted by name.
func (c *NestClient) GetCameras(ctx context.Context, token string) ([]models.Camera, error) {
	var respData map[string]models.Camera

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetAuthToken(token).
		SetResult(&respData).
		Get("/devices/cameras")

	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, fmt.Errorf("failed to get cameras: %s", resp.String())
	}

	cameras := make([]models.Camera, 0, len(respData))
	for id, cam := range respData {
		if cam.DeviceID == "" {
			cam.DeviceID = id
		}
		cameras = append(cameras, cam)
	}
	sort.Slice(cameras, func(i, j int) bool {
		return cameras[i].DisplayName() < cameras[j].DisplayName()
	})

	return cameras, nil
}

package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/masteryee/nest-events/pkg/models"
)

// GetCamera reads one camera by device ID.
func (c *NestClient) GetCamera(ctx context.Context, token, cameraID string) (*models.Camera, error) {
	var cam models.Camera

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetAuthToken(token).
		SetPathParam("id", cameraID).
		SetResult(&cam).
		Get("/devices/cameras/{id}")

	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, fmt.Errorf("failed to get camera %s: %s", cameraID, resp.String())
	}

	if cam.DeviceID == "" {
		cam.DeviceID = cameraID
	}
	return &cam, nil
}

// GetSnapshot downloads the current JPEG still of a camera.
func (c *NestClient) GetSnapshot(ctx context.Context, token, cameraID string) ([]byte, error) {
	cam, err := c.GetCamera(ctx, token, cameraID)
	if err != nil {
		return nil, err
	}
	if cam.SnapshotURL == "" {
		return nil, fmt.Errorf("camera %s has no snapshot URL", cam.DisplayName())
	}

	// The snapshot URL is pre-signed and lives on a media host.
	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetHeader("Accept", "image/jpeg").
		Get(cam.SnapshotURL)

	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, fmt.Errorf("failed to get snapshot: %s", resp.Status())
	}

	if len(resp.Body()) == 0 {
		return nil, errors.New("response body is empty")
	}

	return resp.Body(), nil
}

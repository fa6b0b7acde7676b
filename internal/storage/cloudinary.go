package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Cloudinary stores objects as images with public id <bucket>/<name>.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinary(cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("cloudinary configuration is missing")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("initializing cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, bucket, name string, r io.Reader, overwrite bool) (string, error) {
	if !validName(bucket) || !validName(name) {
		return "", ErrInvalidName
	}
	publicID := bucket + "/" + strings.TrimSuffix(name, extOf(name))
	res, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     publicID,
		Overwrite:    &overwrite,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("uploading to cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		if strings.Contains(strings.ToLower(res.Error.Message), "already exists") {
			return "", ErrExists
		}
		return "", fmt.Errorf("uploading to cloudinary: %s", res.Error.Message)
	}
	if res.Format != "" {
		return res.PublicID + "." + res.Format, nil
	}
	return res.PublicID, nil
}

func (c *Cloudinary) PublicURL(_, objectPath string) string {
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/%s", c.cld.Config.Cloud.CloudName, objectPath)
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[i:]
	}
	return ""
}

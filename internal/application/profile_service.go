package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/buddybloom/buddybloom/internal/domain/entity"
	"github.com/buddybloom/buddybloom/pkg/helpers"
)

// ProfileService is thin orchestration over the registry for the profile
// use cases: display, partial edit, avatar upload and user search.
// GCS and Elasticsearch are optional; when absent the related features
// degrade to no-ops.
type ProfileService struct {
	Registry     *RegistryService
	GCS          *storage.Client
	GCSBucket    string
	ES           *elasticsearch.Client
	ESUsersIndex string
	Logger       *logrus.Logger
}

func NewProfileService(registry *RegistryService, gcs *storage.Client, gcsBucket string, es *elasticsearch.Client, esUsersIndex string, logger *logrus.Logger) *ProfileService {
	return &ProfileService{Registry: registry, GCS: gcs, GCSBucket: gcsBucket, ES: es, ESUsersIndex: esUsersIndex, Logger: logger}
}

// GetProfile fetches the display snapshot, counters included.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Registry.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// UpdateProfileInput mirrors the editable profile fields. A nil pointer
// keeps the current value; NewPassword is rehashed before storage.
type UpdateProfileInput struct {
	Name        *string
	Email       *string
	Bio         *string
	NewPassword *string
}

// UpdateProfile applies the supplied fields. Supplying nothing is a no-op
// returning (nil, nil), matching the registry's partial-update contract.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	update := UpdateUserInput{Name: in.Name, Email: in.Email, Bio: in.Bio}
	if in.NewPassword != nil {
		hash, err := helpers.HashPassword(*in.NewPassword)
		if err != nil {
			return nil, err
		}
		update.PasswordHash = &hash
	}
	u, err := s.Registry.UpdateUser(ctx, userID, update)
	if err != nil || u == nil {
		return u, err
	}
	s.IndexUser(ctx, u)
	return u, nil
}

// UploadAvatar streams an image to GCS and stores the public URL on the
// profile.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return "", errors.New("gcs not configured")
	}
	u, err := s.Registry.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrUserNotFound
	}
	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", userID, id+ext))
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return "", err
	}
	updated, err := s.Registry.UpdateUser(ctx, userID, UpdateUserInput{AvatarURL: &url})
	if err != nil {
		return "", err
	}
	if updated != nil {
		s.IndexUser(ctx, updated)
	}
	return url, nil
}

// IndexUser pushes the public profile fields to Elasticsearch. The password
// hash never leaves the store. Failures are logged and swallowed: search
// staleness is acceptable, a broken profile edit is not.
func (s *ProfileService) IndexUser(ctx context.Context, u *entity.User) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	doc := map[string]any{
		"userId":     u.ID,
		"username":   u.Username,
		"name":       u.Name,
		"bio":        u.Bio,
		"avatar_url": u.AvatarURL,
		"updated_at": u.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
}

// SearchUsers runs a multi_match over username and name. Returns the raw
// indexed documents; an unconfigured ES yields an empty result.
func (s *ProfileService) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"username^2", "name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESUsersIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

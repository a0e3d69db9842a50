/*
Package handler provides HTTP handler functions for user profile and avatar management.
*/
package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"wavechat/internal/pkg/errs"
	"wavechat/internal/pkg/logx"
	"wavechat/internal/pkg/req"
	"wavechat/internal/pkg/resp"
)

const (
	// PresignedURLDuration is how long generated avatar upload and download URLs stay valid.
	PresignedURLDuration = 15 * time.Minute

	// MaxAvatarFileSize caps avatar uploads at 5 MB.
	MaxAvatarFileSize int64 = 5 << 20

	// avatarFetchTimeout bounds the server-side fetch when importing an avatar from a URL.
	avatarFetchTimeout = 10 * time.Second
)

var allowedAvatarMimeTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// HandleGetUserProfile retrieves the current authenticated user's profile and
// updates the last_login_at timestamp if the threshold is met.
func HandleGetUserProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, customErr := identityFromRequest(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		record, err := deps.Store.GetUserByID(r.Context(), userID)
		if err != nil {
			logx.Warn("get_user_profile: user not found", "id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var lastLoginResponse any = nil
		if record.LastLoginAt != nil {
			lastLoginResponse = record.LastLoginAt.Format(time.RFC3339)
		}

		shouldUpdate := record.LastLoginAt == nil || time.Since(*record.LastLoginAt) > 30*time.Minute
		if shouldUpdate {
			go func(id uuid.UUID) {
				if err := deps.Store.UpdateLastLogin(context.Background(), id); err != nil {
					logx.Error(err, "get_user_profile: failed to update last_login_at", "user_id", id)
				}
			}(record.ID)
		}

		avatarURL := ""
		if record.Avatar != "" {
			avatarURL, err = deps.Storage.PresignDownload(r.Context(), record.Avatar, PresignedURLDuration)
			if err != nil {
				logx.Error(err, "get_user_profile: failed to presign avatar download", "user_id", userID)
				avatarURL = ""
			}
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user":        record.Public(),
			"avatarUrl":   avatarURL,
			"lastLoginAt": lastLoginResponse,
		})
	}
}

// PresignAvatarInput defines the JSON input structure for generating an avatar upload URL.
type PresignAvatarInput struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

// HandlePresignAvatarURL generates a time-limited, pre-signed URL the client
// uploads its avatar to directly, scoped to the authenticated user's key space.
func HandlePresignAvatarURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, customErr := identityFromRequest(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input PresignAvatarInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.FileSize <= 0 || input.FileSize > MaxAvatarFileSize {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		ext, ok := allowedAvatarMimeTypes[input.MimeType]
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		if got := strings.ToLower(filepath.Ext(input.FileName)); got != "" && got != ext && !(got == ".jpeg" && ext == ".jpg") {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		fileKey := fmt.Sprintf("avatars/%s/%s%s", userID, uuid.New(), ext)

		presignedURL, err := deps.Storage.PresignUpload(
			r.Context(),
			fileKey,
			input.MimeType,
			input.FileSize,
			PresignedURLDuration,
		)
		if err != nil {
			logx.Error(err, "presign_avatar: storage rejected presign", "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"presignedUrl": presignedURL,
			"fileKey":      fileKey,
		})
	}
}

// ConfirmAvatarInput defines the JSON input for confirming an uploaded avatar.
type ConfirmAvatarInput struct {
	FileKey string `json:"file_key"`
}

// HandleConfirmAvatar records a previously uploaded object as the user's avatar.
// The key must lie inside the user's own key space and the object must exist.
func HandleConfirmAvatar(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, customErr := identityFromRequest(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input ConfirmAvatarInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		expectedPrefix := fmt.Sprintf("avatars/%s/", userID)
		if !strings.HasPrefix(input.FileKey, expectedPrefix) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if _, err := deps.Storage.GetObjectMetadata(r.Context(), input.FileKey); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		record, err := deps.Store.GetUserByID(r.Context(), userID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		if err := deps.Store.UpdateUserAvatar(r.Context(), userID, input.FileKey); err != nil {
			logx.Error(err, "confirm_avatar: failed to update avatar", "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if oldKey := record.Avatar; oldKey != "" && oldKey != input.FileKey {
			go func(k string) {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = deps.Storage.Delete(ctx, k)
			}(oldKey)
		}

		resp.RespondSuccess(w, r, map[string]any{
			"avatar": input.FileKey,
		})
	}
}

// ImportAvatarInput defines the JSON input for importing an avatar from a remote URL.
type ImportAvatarInput struct {
	URL string `json:"url"`
}

// HandleImportAvatar fetches an image from a remote URL on the user's behalf
// and stores it as the user's avatar.
func HandleImportAvatar(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, customErr := identityFromRequest(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input ImportAvatarInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		parsed, err := url.Parse(input.URL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), avatarFetchTimeout)
		defer cancel()

		request, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		response, err := http.DefaultClient.Do(request)
		if err != nil {
			logx.Warn("import_avatar: remote fetch failed", "user_id", userID, "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}
		defer response.Body.Close()

		if response.StatusCode != http.StatusOK {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		mimeType := response.Header.Get("Content-Type")
		ext, ok := allowedAvatarMimeTypes[mimeType]
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		record, err := deps.Store.GetUserByID(r.Context(), userID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		fileKey := fmt.Sprintf("avatars/%s/%s%s", userID, uuid.New(), ext)
		body := http.MaxBytesReader(nil, response.Body, MaxAvatarFileSize)

		if err := deps.Storage.Upload(ctx, fileKey, mimeType, body); err != nil {
			logx.Error(err, "import_avatar: storage upload failed", "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		if err := deps.Store.UpdateUserAvatar(r.Context(), userID, fileKey); err != nil {
			logx.Error(err, "import_avatar: failed to update avatar", "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if oldKey := record.Avatar; oldKey != "" {
			go func(k string) {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = deps.Storage.Delete(ctx, k)
			}(oldKey)
		}

		resp.RespondSuccess(w, r, map[string]any{
			"avatar": fileKey,
		})
	}
}

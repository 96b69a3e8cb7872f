/*
Package handler provides the HTTP handlers and routing setup for the AgroLink realtime server.

This file contains the attachment handlers. File bytes never pass through
this server: clients upload and download directly against presigned URLs.
*/
package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"agrolink/internal/app/storage"
	"agrolink/internal/pkg/auth/jwt"
	"agrolink/internal/pkg/errs"
	"agrolink/internal/pkg/req"
	"agrolink/internal/pkg/resp"
)

// MaxAttachmentBytes caps the declared size of one attachment (50 MB).
const MaxAttachmentBytes int64 = 50 << 20

// presignUploadBody is the payload for requesting an upload URL.
type presignUploadBody struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// presignUploadResult carries the presigned URL together with the storage key
// the client must echo back in the message attachment.
type presignUploadResult struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
}

// HandlePresignUpload validates the declared file metadata and returns a
// presigned PUT URL pinned to that metadata.
func HandlePresignUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthenticated))
			return
		}

		var body presignUploadBody
		if customErr := req.BindJSON(w, r, &body); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if body.MimeType == "" || body.FileSize <= 0 || body.FileSize > MaxAttachmentBytes {
			resp.RespondError(w, r, errs.NewError(errs.ErrAttachmentInvalid))
			return
		}

		key := attachmentKey(payload.ID, body.FileName)

		uploadURL, err := deps.StorageService.PresignUpload(
			r.Context(),
			key,
			body.MimeType,
			body.FileSize,
			storage.PresignedUploadDuration,
		)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, presignUploadResult{
			UploadURL: uploadURL,
			Key:       key,
		})
	}
}

// HandlePresignDownload returns a presigned GET URL for an attachment key.
func HandlePresignDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthenticated))
			return
		}

		key := r.URL.Query().Get("key")
		if key == "" || !strings.HasPrefix(key, "attachments/") {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		downloadURL, err := deps.StorageService.PresignDownload(
			r.Context(),
			key,
			storage.PresignedDownloadDuration,
		)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]string{
			"downloadUrl": downloadURL,
		})
	}
}

// attachmentKey builds an object key that never trusts the client-supplied
// file name beyond its extension.
func attachmentKey(userID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) > 10 {
		ext = ""
	}
	return "attachments/" + userID + "/" + uuid.New().String() + ext
}

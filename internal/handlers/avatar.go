package handlers

import (
	"net/http"

	"github.com/meetpoint-app/meetpoint-backend/internal/config"
	"github.com/meetpoint-app/meetpoint-backend/internal/database"
	"github.com/meetpoint-app/meetpoint-backend/internal/services"
)

var cloudinaryService *services.CloudinaryService

func InitCloudinaryService(cfg *config.Config) error {
	service, err := services.NewCloudinaryService(
		cfg.CloudinaryName,
		cfg.CloudinaryAPIKey,
		cfg.CloudinaryAPISecret,
	)
	if err != nil {
		return err
	}
	cloudinaryService = service
	return nil
}

type UploadAvatarResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

// UploadAvatar handles POST /me/avatar/. Uploads the multipart "file" part to
// Cloudinary and stores the secure URL on the caller's profile, creating the
// profile first if it does not exist yet.
func UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthenticated(w)
		return
	}

	if cloudinaryService == nil {
		writeJSON(w, http.StatusServiceUnavailable, UploadAvatarResponse{
			Success: false,
			Message: "File upload service not available",
		})
		return
	}

	// Parse multipart form (max 10MB)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, UploadAvatarResponse{
			Success: false,
			Message: "Failed to parse form: " + err.Error(),
		})
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, UploadAvatarResponse{
			Success: false,
			Message: "No file provided",
		})
		return
	}
	defer file.Close()

	profile, err := services.GetOrCreateProfile(userID)
	if err != nil {
		writeDatabaseError(w)
		return
	}

	url, err := cloudinaryService.UploadAvatar(r.Context(), file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, UploadAvatarResponse{
			Success: false,
			Message: "Failed to upload file",
		})
		return
	}

	_, err = database.PostgresDB.Exec(`
		UPDATE profiles SET avatar_url = $2, updated_at = NOW() WHERE id = $1
	`, profile.ID, url)
	if err != nil {
		writeDatabaseError(w)
		return
	}

	writeJSON(w, http.StatusOK, UploadAvatarResponse{
		Success: true,
		Message: "Avatar uploaded successfully",
		URL:     url,
	})
}

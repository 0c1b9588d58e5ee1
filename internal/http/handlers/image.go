package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/babetranslator-backend/internal/http/response"
)

const imageFormField = "image"

var (
	errNoImage       = errors.New("missing image")
	errImageTooLarge = errors.New("image exceeds size limit")
)

// readImage pulls an upload out of either a multipart "image" part or a raw
// request body. The declared content type is the part's (or the request's);
// it is only sniffed when the client declared nothing.
func readImage(c *gin.Context, maxBytes int64) ([]byte, string, error) {
	if maxBytes > 0 {
		// Multipart framing adds a little on top of the file itself.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+64<<10)
	}

	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	var (
		r        io.Reader
		declared string
	)
	if strings.HasPrefix(mediaType, "multipart/") {
		fh, err := c.FormFile(imageFormField)
		if err != nil {
			if isTooLarge(err) {
				return nil, "", errImageTooLarge
			}
			return nil, "", errNoImage
		}
		if maxBytes > 0 && fh.Size > maxBytes {
			return nil, "", errImageTooLarge
		}
		f, err := fh.Open()
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		r = f
		declared = fh.Header.Get("Content-Type")
	} else {
		r = c.Request.Body
		declared = c.GetHeader("Content-Type")
	}

	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		if isTooLarge(err) {
			return nil, "", errImageTooLarge
		}
		return nil, "", err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, "", errImageTooLarge
	}
	if len(data) == 0 {
		return nil, "", errNoImage
	}
	if strings.TrimSpace(declared) == "" {
		declared = http.DetectContentType(data)
	}
	return data, declared, nil
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

func respondImageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errImageTooLarge):
		response.RespondError(c, http.StatusRequestEntityTooLarge, "image_too_large", err)
	case errors.Is(err, errNoImage):
		response.RespondError(c, http.StatusBadRequest, "validation_failed", err)
	default:
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
	}
}

package middleware

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/channelsync/backend/internal/domain/channel"
)

// SetupValidator registers custom validations on gin's binding validator.
// Call once before serving requests.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	// platform: the field names a connectable platform
	_ = v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
		return channel.PlatformCode(fl.Field().String()).IsValid()
	})
}

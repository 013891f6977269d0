package payment

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// The "crypto" binding tag rejects unsupported asset codes before the
// request reaches a handler.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("crypto", validCrypto)
	}
}

func validCrypto(fl validator.FieldLevel) bool {
	return SupportedAsset(fl.Field().String())
}

package logger

import (
	"strings"

	"go.uber.org/zap"
)

func FieldMod(value string) Field {
	return String("mod", strings.ReplaceAll(value, " ", "."))
}

func FieldErr(err error) Field {
	return zap.Error(err)
}

func FieldMint(mint string) Field {
	return String("mint", mint)
}

func FieldDev(address string) Field {
	return String("dev", address)
}

// FieldSession tags entries with the feed session id.
func FieldSession(id string) Field {
	return String("session", id)
}

func FieldStep(step string) Field {
	return String("step", step)
}

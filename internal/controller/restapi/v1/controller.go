package v1

import (
	"github.com/okushnikov/structured-query/internal/usecase"
	"github.com/okushnikov/structured-query/pkg/logger"
)

type V1 struct {
	auth   usecase.AuthUseCase
	img    usecase.ImageUseCase
	query  usecase.QueryUseCase
	usage  usecase.UsageUseCase
	logger logger.Interface
}

package queries

import (
	"context"

	"fulfillment/internal/core/ports"
)

// ListCallbacksQueryHandler reads the callback queue for operators.
type ListCallbacksQueryHandler struct {
	factory RepositoriesFactory
}

func NewListCallbacksQueryHandler(factory RepositoriesFactory) ListCallbacksQueryHandler {
	return ListCallbacksQueryHandler{factory: factory}
}

// Handle returns at most query.Limit rows mapped to their read model.
func (h ListCallbacksQueryHandler) Handle(ctx context.Context, query ListCallbacksQuery) ([]ListCallbacksQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	callbacks, err := h.factory.Create().CallbackRepository().List(ctx, ports.CallbackFilter{
		Status: query.Status(),
		Limit:  query.Limit(),
	})
	if err != nil {
		return nil, err
	}

	result := make([]ListCallbacksQueryResponse, 0, len(callbacks))
	for _, c := range callbacks {
		result = append(result, NewListCallbacksQueryResponse(c))
	}
	return result, nil
}

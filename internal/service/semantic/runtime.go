package semantic

import "github.com/devrev/meerkat-sub004/internal/domain"

// SetQueryExecutor wires the engine that runs compiled queries.
func (s *Service) SetQueryExecutor(exec domain.QueryExecutor) {
	s.queryExec = exec
}

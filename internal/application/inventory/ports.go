package inventory

// RetryObserver recibe los eventos del ejecutor optimista (lo implementa el adaptador de métricas).
type RetryObserver interface {
	ObserveConflict(sku string)
	ObserveExhausted(sku string)
	ObserveAttempts(attempts int)
}

type noopObserver struct{}

func (noopObserver) ObserveConflict(string)  {}
func (noopObserver) ObserveExhausted(string) {}
func (noopObserver) ObserveAttempts(int)     {}

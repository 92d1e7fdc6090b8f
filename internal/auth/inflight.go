package auth

import "sync"

// inflight serializa el refresh por identidad con un marcador exclusivo
// no bloqueante: el segundo intento concurrente falla de inmediato en vez de
// encolarse y arriesgar rotar un token ya rotado.
type inflight struct {
	m sync.Map // userID → struct{}
}

// tryAcquire intenta tomar el marcador del usuario. false si ya está tomado.
func (f *inflight) tryAcquire(userID string) bool {
	_, loaded := f.m.LoadOrStore(userID, struct{}{})
	return !loaded
}

// release libera el marcador. Seguro de llamar aunque no esté tomado.
func (f *inflight) release(userID string) {
	f.m.Delete(userID)
}

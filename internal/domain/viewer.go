package domain

import "strings"

// Viewer es el usuario autenticado que abre una sesion de chat.
type Viewer struct {
	UserID          int64
	Name            string
	Token           string
	ProfileComplete bool
}

// Ready indica si el viewer puede abrir una sesion: autenticado y con perfil completo.
func (v Viewer) Ready() bool {
	return v.UserID > 0 && strings.TrimSpace(v.Token) != "" && v.ProfileComplete
}

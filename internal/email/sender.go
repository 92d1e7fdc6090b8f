// Package email envía los correos transaccionales del servicio.
//
// El envío es best-effort desde la perspectiva del Auth Service: una falla de
// entrega se loguea y no revierte la mutación que la disparó.
package email

import "fmt"

// Sender es el transporte de bajo nivel (SMTP en producción).
type Sender interface {
	// Send envía un mensaje con cuerpo HTML y texto plano.
	Send(to, subject, htmlBody, textBody string) error
}

// Service arma los mensajes del dominio sobre un Sender.
type Service struct {
	sender Sender
}

// NewService crea el servicio de correos.
func NewService(s Sender) *Service {
	return &Service{sender: s}
}

// SendResetCode envía el código de restablecimiento de contraseña.
func (s *Service) SendResetCode(to, resetCode string) error {
	subject := "Restablecimiento de contraseña"

	text := fmt.Sprintf(`Hola,

Has solicitado restablecer tu contraseña. Tu código de restablecimiento es: %s

El código expira en 15 minutos. Si no solicitaste este cambio, ignora este correo.`, resetCode)

	html := fmt.Sprintf(`<p>Hola,</p>
<p>Has solicitado restablecer tu contraseña. Tu código de restablecimiento es:</p>
<p><strong>%s</strong></p>
<p>El código expira en 15 minutos. Si no solicitaste este cambio, ignora este correo.</p>`, resetCode)

	return s.sender.Send(to, subject, html, text)
}

// SendAccessCredentials envía las credenciales iniciales de una cuenta.
func (s *Service) SendAccessCredentials(to, username, password string) error {
	subject := "Acceso a tu cuenta"

	text := fmt.Sprintf(`Hola,

Aquí están tus credenciales para acceder al sistema:

Usuario: %s
Contraseña temporal: %s

Por favor, inicia sesión y cambia tu contraseña lo antes posible.`, username, password)

	html := fmt.Sprintf(`<p>Hola,</p>
<p>Aquí están tus credenciales para acceder al sistema:</p>
<ul>
  <li><strong>Usuario:</strong> %s</li>
  <li><strong>Contraseña temporal:</strong> %s</li>
</ul>
<p>Por favor, inicia sesión y cambia tu contraseña lo antes posible.</p>`, username, password)

	return s.sender.Send(to, subject, html, text)
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Fraanv1/TPI-Programacion-II/internal/domain"
	"github.com/Fraanv1/TPI-Programacion-II/internal/service"
	"github.com/Fraanv1/TPI-Programacion-II/internal/store"
)

// menu drives the interactive console loop. Every action reports its outcome
// on the output writer; an operational error never terminates the loop.
type menu struct {
	users   *service.UserService
	scanner *bufio.Scanner
	out     io.Writer
}

func newMenu(users *service.UserService, in io.Reader, out io.Writer) *menu {
	return &menu{
		users:   users,
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// Run shows the menu until the user exits or the input stream ends.
func (m *menu) Run(ctx context.Context) error {
	for {
		m.printf("\n=== Gestion de Usuarios ===\n")
		m.printf(" 1. Listar usuarios\n")
		m.printf(" 2. Buscar usuario por ID\n")
		m.printf(" 3. Buscar usuario por username\n")
		m.printf(" 4. Buscar usuario por email\n")
		m.printf(" 5. Crear usuario\n")
		m.printf(" 6. Modificar usuario\n")
		m.printf(" 7. Eliminar usuario\n")
		m.printf(" 8. Restaurar usuario\n")
		m.printf(" 9. Listar credenciales\n")
		m.printf("10. Eliminar credencial\n")
		m.printf("11. Restaurar credencial\n")
		m.printf(" 0. Salir\n")

		choice, ok := m.prompt("Opcion: ")
		if !ok {
			return nil
		}

		switch strings.TrimSpace(choice) {
		case "1":
			m.listUsers(ctx)
		case "2":
			m.getUser(ctx)
		case "3":
			m.findByUsername(ctx)
		case "4":
			m.findByEmail(ctx)
		case "5":
			m.createUser(ctx)
		case "6":
			m.updateUser(ctx)
		case "7":
			m.deleteUser(ctx)
		case "8":
			m.restoreUser(ctx)
		case "9":
			m.listCredentials(ctx)
		case "10":
			m.deleteCredential(ctx)
		case "11":
			m.restoreCredential(ctx)
		case "0":
			m.printf("Hasta luego.\n")
			return nil
		default:
			m.printf("Opcion invalida.\n")
		}
	}
}

func (m *menu) listUsers(ctx context.Context) {
	users, err := m.users.GetAll(ctx)
	if err != nil {
		m.reportError(err)
		return
	}
	if len(users) == 0 {
		m.printf("No hay usuarios registrados.\n")
		return
	}
	for _, u := range users {
		m.printUser(u)
	}
}

func (m *menu) getUser(ctx context.Context) {
	id, ok := m.promptID("ID de usuario: ")
	if !ok {
		return
	}
	user, err := m.users.GetByID(ctx, id)
	if err != nil {
		m.reportError(err)
		return
	}
	m.printUser(user)
}

func (m *menu) findByUsername(ctx context.Context) {
	username, ok := m.prompt("Username: ")
	if !ok {
		return
	}
	user, err := m.users.FindByUsername(ctx, username)
	if err != nil {
		m.reportError(err)
		return
	}
	m.printUser(user)
}

func (m *menu) findByEmail(ctx context.Context) {
	email, ok := m.prompt("Email: ")
	if !ok {
		return
	}
	user, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		m.reportError(err)
		return
	}
	m.printUser(user)
}

func (m *menu) createUser(ctx context.Context) {
	username, ok := m.prompt("Username: ")
	if !ok {
		return
	}
	email, ok := m.prompt("Email: ")
	if !ok {
		return
	}
	plaintext, ok := m.prompt("Contrasena: ")
	if !ok {
		return
	}

	user, err := domain.NewUser(username, email, plaintext)
	if err != nil {
		m.printf("Datos invalidos: %v\n", err)
		return
	}

	if answer, ok := m.prompt("Activar la cuenta? (s/n): "); ok {
		user.Active = strings.EqualFold(strings.TrimSpace(answer), "s")
	}

	if err := m.users.Create(ctx, user); err != nil {
		m.reportError(err)
		return
	}
	m.printf("Usuario creado con ID %d (credencial %d).\n", user.ID, user.Credential.ID)
}

func (m *menu) updateUser(ctx context.Context) {
	id, ok := m.promptID("ID de usuario a modificar: ")
	if !ok {
		return
	}
	user, err := m.users.GetByID(ctx, id)
	if err != nil {
		m.reportError(err)
		return
	}
	m.printUser(user)

	if value, ok := m.prompt("Nuevo username (enter para mantener): "); ok && strings.TrimSpace(value) != "" {
		user.Username = strings.TrimSpace(value)
	}
	if value, ok := m.prompt("Nuevo email (enter para mantener): "); ok && strings.TrimSpace(value) != "" {
		user.Email = strings.TrimSpace(value)
	}
	if answer, ok := m.prompt("Cuenta activa? (s/n, enter para mantener): "); ok {
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "s":
			user.Active = true
		case "n":
			user.Active = false
		}
	}
	if user.Credential != nil {
		if value, ok := m.prompt("Nueva contrasena (enter para mantener): "); ok && value != "" {
			user.Credential.Secret = domain.NewPendingSecret(value)
		}
		if answer, ok := m.prompt("Forzar cambio de contrasena? (s/n, enter para mantener): "); ok {
			switch strings.ToLower(strings.TrimSpace(answer)) {
			case "s":
				user.Credential.RequiresReset = true
			case "n":
				user.Credential.RequiresReset = false
			}
		}
	}

	if err := m.users.Update(ctx, user); err != nil {
		m.reportError(err)
		return
	}
	m.printf("Usuario %d actualizado.\n", user.ID)
}

func (m *menu) deleteUser(ctx context.Context) {
	id, ok := m.promptID("ID de usuario a eliminar: ")
	if !ok {
		return
	}
	if err := m.users.Delete(ctx, id); err != nil {
		m.reportError(err)
		return
	}
	m.printf("Usuario %d eliminado.\n", id)
}

func (m *menu) restoreUser(ctx context.Context) {
	id, ok := m.promptID("ID de usuario a restaurar: ")
	if !ok {
		return
	}
	user, err := m.users.Restore(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrCredentialNotRestored) {
			m.printf("Usuario %d restaurado, pero su credencial no pudo restaurarse: %v\n", user.ID, err)
			return
		}
		m.reportError(err)
		return
	}
	m.printf("Usuario %d restaurado.\n", user.ID)
}

func (m *menu) listCredentials(ctx context.Context) {
	creds, err := m.users.CredentialService().GetAll(ctx)
	if err != nil {
		m.reportError(err)
		return
	}
	if len(creds) == 0 {
		m.printf("No hay credenciales registradas.\n")
		return
	}
	for _, c := range creds {
		m.printCredential(c)
	}
}

func (m *menu) deleteCredential(ctx context.Context) {
	id, ok := m.promptID("ID de credencial a eliminar: ")
	if !ok {
		return
	}
	if err := m.users.CredentialService().Delete(ctx, id); err != nil {
		m.reportError(err)
		return
	}
	m.printf("Credencial %d eliminada.\n", id)
}

func (m *menu) restoreCredential(ctx context.Context) {
	id, ok := m.promptID("ID de credencial a restaurar: ")
	if !ok {
		return
	}
	if err := m.users.CredentialService().Restore(ctx, id); err != nil {
		m.reportError(err)
		return
	}
	m.printf("Credencial %d restaurada.\n", id)
}

// prompt prints the label and reads one line. ok is false when the input
// stream has ended.
func (m *menu) prompt(label string) (string, bool) {
	m.printf("%s", label)
	if !m.scanner.Scan() {
		return "", false
	}
	return m.scanner.Text(), true
}

func (m *menu) promptID(label string) (int64, bool) {
	value, ok := m.prompt(label)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		m.printf("El ID debe ser un numero mayor que cero.\n")
		return 0, false
	}
	return id, true
}

// reportError turns a service error into a console message. Expected
// categories get a friendly line; anything else is surfaced as-is.
func (m *menu) reportError(err error) {
	switch {
	case store.IsNotFoundError(err):
		m.printf("No encontrado: %v\n", err)
	case store.IsConflictError(err):
		m.printf("Conflicto: %v\n", err)
	case store.IsInvalidArgumentError(err):
		m.printf("Datos invalidos: %v\n", err)
	case errors.Is(err, store.ErrConnection):
		m.printf("Sin conexion a la base de datos: %v\n", err)
	default:
		m.printf("Error: %v\n", err)
	}
}

func (m *menu) printUser(u *domain.User) {
	credential := "sin credencial"
	if u.Credential != nil {
		credential = fmt.Sprintf("credencial %d", u.Credential.ID)
	}
	m.printf("[%d] %s <%s> activo=%t registrado=%s (%s)\n",
		u.ID, u.Username, u.Email, u.Active,
		u.RegisteredAt.Format("2006-01-02"), credential)
}

func (m *menu) printCredential(c *domain.Credential) {
	m.printf("[%d] cambiada=%s requiere_reset=%t\n",
		c.ID, c.LastChanged.Format("2006-01-02 15:04"), c.RequiresReset)
}

func (m *menu) printf(format string, args ...any) {
	fmt.Fprintf(m.out, format, args...)
}

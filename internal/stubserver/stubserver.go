// Package stubserver is an in-memory implementation of the document
// store contract, used by integration tests and for local development.
// It enforces the same rules the production service does: bearer auth
// on everything, owner-only share/delete, admin-only audit access, and
// the {success, data, message} response envelope. Listing deliberately
// emits the legacy wire shape for seeded documents so client
// normalization stays exercised.
package stubserver

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type user struct {
	ID       string
	Name     string
	Email    string
	Password string
	Roles    []string
}

type share struct {
	GranteeID string
	Level     string
}

type document struct {
	ID          string
	Name        string
	ContentType string
	Content     []byte
	CreatedAt   time.Time
	OwnerID     string
	Shares      []share

	// legacy marks seeded documents listed in the mongo-era shape.
	legacy bool
}

type folder struct {
	ID        string
	Name      string
	Path      string
	OwnerID   string
	CreatedAt time.Time
}

type auditEntry struct {
	ID           string
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	Status       string
	Details      map[string]any
	CreatedAt    time.Time
}

// Server holds the in-memory state behind a fiber app.
type Server struct {
	app        *fiber.App
	signingKey []byte

	mu       sync.Mutex
	users    map[string]*user
	byEmail  map[string]string
	docs     map[string]*document
	docOrder []string
	folders  map[string]*folder
	audit    []auditEntry
}

// New builds a stub server signing tokens with the given key.
func New(signingKey string) *Server {
	s := &Server{
		signingKey: []byte(signingKey),
		users:      make(map[string]*user),
		byEmail:    make(map[string]string),
		docs:       make(map[string]*document),
		folders:    make(map[string]*folder),
	}
	s.app = fiber.New(fiber.Config{DisableStartupMessage: true})
	s.routes()
	return s
}

// App exposes the fiber app for serving.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until the app is shut down.
func (s *Server) Listen(addr string) error { return s.app.Listen(addr) }

// SeedUser registers a user directly, bypassing the register endpoint.
// Returns the assigned user id.
func (s *Server) SeedUser(name, email, password string, roles ...string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.users[id] = &user{ID: id, Name: name, Email: email, Password: password, Roles: roles}
	s.byEmail[email] = id
	return id
}

// SeedDocument inserts a document owned by ownerID. Legacy documents
// are listed in the old wire shape.
func (s *Server) SeedDocument(ownerID, name string, content []byte, legacy bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.docs[id] = &document{
		ID:        id,
		Name:      name,
		Content:   content,
		CreatedAt: time.Now().UTC(),
		OwnerID:   ownerID,
		legacy:    legacy,
	}
	s.docOrder = append([]string{id}, s.docOrder...)
	return id
}

// MintToken issues a signed credential for the user, used by tests
// that need a token without going through login.
func (s *Server) MintToken(userID string) (string, error) {
	s.mu.Lock()
	u, ok := s.users[userID]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown user %s", userID)
	}
	return s.mint(u)
}

func (s *Server) mint(u *user) (string, error) {
	claims := jwt.MapClaims{
		"userId": u.ID,
		"roles":  u.Roles,
		"exp":    time.Now().Add(time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{"success": true, "data": data})
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "message": message})
}

// authed parses the bearer token and stores the acting user id in the
// request locals. Invalid or missing credentials get a 401 envelope.
func (s *Server) authed(c *fiber.Ctx) error {
	raw := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
	if raw == "" || raw == c.Get("Authorization") {
		return fail(c, fiber.StatusUnauthorized, "missing bearer token")
	}

	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return fail(c, fiber.StatusUnauthorized, "invalid token")
	}
	claims, okc := tok.Claims.(jwt.MapClaims)
	if !okc {
		return fail(c, fiber.StatusUnauthorized, "invalid token")
	}
	id, _ := claims["userId"].(string)

	s.mu.Lock()
	_, known := s.users[id]
	s.mu.Unlock()
	if !known {
		return fail(c, fiber.StatusUnauthorized, "unknown user")
	}

	c.Locals("userID", id)
	return c.Next()
}

func actor(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}

func (s *Server) record(actorID, action, resourceType, resourceID, status string, details map[string]any) {
	s.audit = append(s.audit, auditEntry{
		ID:           uuid.NewString(),
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       status,
		Details:      details,
		CreatedAt:    time.Now().UTC(),
	})
}

func (s *Server) ownerJSON(id string) fiber.Map {
	if u, okc := s.users[id]; okc {
		return fiber.Map{"id": u.ID, "email": u.Email}
	}
	return fiber.Map{"id": id}
}

// docJSON renders a document in one of the two wire shapes the real
// service emits.
func (s *Server) docJSON(d *document) fiber.Map {
	shares := make([]fiber.Map, 0, len(d.Shares))
	for _, sh := range d.Shares {
		if d.legacy {
			shares = append(shares, fiber.Map{"user": sh.GranteeID, "accessType": sh.Level})
		} else {
			shares = append(shares, fiber.Map{"granteeId": sh.GranteeID, "accessLevel": sh.Level})
		}
	}
	owner := s.ownerJSON(d.OwnerID)
	if d.legacy {
		legacyOwner := fiber.Map{"_id": owner["id"]}
		if email, okc := owner["email"]; okc {
			legacyOwner["email"] = email
		}
		return fiber.Map{
			"_id":          d.ID,
			"originalname": d.Name,
			"fileType":     d.ContentType,
			"fileSize":     len(d.Content),
			"createdAt":    d.CreatedAt.Format(time.RFC3339),
			"owner":        legacyOwner,
			"sharedWith":   shares,
		}
	}
	return fiber.Map{
		"id":         d.ID,
		"name":       d.Name,
		"type":       d.ContentType,
		"size":       len(d.Content),
		"uploadedAt": d.CreatedAt.Format(time.RFC3339),
		"owner":      owner,
		"sharedWith": shares,
	}
}

func (s *Server) visible(d *document, userID string) bool {
	if d.OwnerID == userID {
		return true
	}
	for _, sh := range d.Shares {
		if sh.GranteeID == userID {
			return true
		}
	}
	return false
}

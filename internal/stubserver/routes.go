package stubserver

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (s *Server) routes() {
	app := s.app

	app.Post("/api/auth/register", s.handleRegister)
	app.Post("/api/auth/login", s.handleLogin)

	api := app.Group("/api", s.authed)
	api.Get("/documents", s.handleListDocuments)
	api.Post("/documents", s.handleUpload)
	api.Delete("/documents/:id", s.handleDelete)
	api.Get("/documents/:id/download", s.handleDownload)
	api.Post("/documents/:id/share", s.handleShare)

	api.Get("/users/resolve", s.handleResolveUser)
	api.Get("/users", s.handleListUsers)
	api.Get("/audit-logs", s.handleAuditLogs)

	api.Get("/folders", s.handleListFolders)
	api.Post("/folders", s.handleCreateFolder)
	api.Delete("/folders/:id", s.handleDeleteFolder)
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil || body.Email == "" || body.Password == "" {
		return fail(c, fiber.StatusBadRequest, "email and password are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[body.Email]; taken {
		return fail(c, fiber.StatusBadRequest, "email already registered")
	}
	id := uuid.NewString()
	s.users[id] = &user{ID: id, Name: body.Name, Email: body.Email, Password: body.Password, Roles: []string{"user"}}
	s.byEmail[body.Email] = id
	return ok(c, fiber.StatusCreated, fiber.Map{"id": id})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, "malformed request")
	}

	s.mu.Lock()
	id, known := s.byEmail[body.Email]
	var u *user
	if known {
		u = s.users[id]
	}
	s.mu.Unlock()

	if u == nil || u.Password != body.Password {
		return fail(c, fiber.StatusBadRequest, "invalid credentials")
	}

	tok, err := s.mint(u)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "token minting failed")
	}
	return ok(c, fiber.StatusOK, fiber.Map{
		"token": tok,
		"user":  fiber.Map{"id": u.ID, "email": u.Email, "name": u.Name},
	})
}

func (s *Server) handleListDocuments(c *fiber.Ctx) error {
	userID := actor(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]fiber.Map, 0)
	for _, id := range s.docOrder {
		d := s.docs[id]
		if s.visible(d, userID) {
			out = append(out, s.docJSON(d))
		}
	}
	return ok(c, fiber.StatusOK, out)
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	userID := actor(c)

	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "cannot open uploaded file")
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "cannot read uploaded file")
	}

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d := &document{
		ID:          uuid.NewString(),
		Name:        fh.Filename,
		ContentType: ct,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
		OwnerID:     userID,
	}
	s.docs[d.ID] = d
	s.docOrder = append([]string{d.ID}, s.docOrder...)
	s.record(userID, "document.upload", "document", d.ID, "success", fiber.Map{"name": d.Name})
	return ok(c, fiber.StatusCreated, s.docJSON(d))
}

func (s *Server) handleDelete(c *fiber.Ctx) error {
	userID := actor(c)
	id := c.Params("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	d, found := s.docs[id]
	if !found {
		return fail(c, fiber.StatusNotFound, "document not found")
	}
	if d.OwnerID != userID {
		return fail(c, fiber.StatusForbidden, "only the owner may delete a document")
	}

	delete(s.docs, id)
	for i, oid := range s.docOrder {
		if oid == id {
			s.docOrder = append(s.docOrder[:i], s.docOrder[i+1:]...)
			break
		}
	}
	s.record(userID, "document.delete", "document", id, "success", nil)
	return ok(c, fiber.StatusOK, nil)
}

func (s *Server) handleDownload(c *fiber.Ctx) error {
	userID := actor(c)
	id := c.Params("id")

	s.mu.Lock()
	d, found := s.docs[id]
	var content []byte
	var visible bool
	if found {
		visible = s.visible(d, userID)
		content = d.Content
	}
	s.mu.Unlock()

	if !found {
		return fail(c, fiber.StatusNotFound, "document not found")
	}
	if !visible {
		return fail(c, fiber.StatusForbidden, "no access to this document")
	}
	return c.Status(fiber.StatusOK).Send(content)
}

func (s *Server) handleShare(c *fiber.Ctx) error {
	userID := actor(c)
	id := c.Params("id")

	var body struct {
		GranteeID   string `json:"granteeId"`
		AccessLevel string `json:"accessLevel"`
	}
	if err := c.BodyParser(&body); err != nil || body.GranteeID == "" {
		return fail(c, fiber.StatusBadRequest, "granteeId is required")
	}
	if body.AccessLevel != "view" && body.AccessLevel != "edit" {
		return fail(c, fiber.StatusBadRequest, "accessLevel must be view or edit")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, found := s.docs[id]
	if !found {
		return fail(c, fiber.StatusNotFound, "document not found")
	}
	if d.OwnerID != userID {
		return fail(c, fiber.StatusForbidden, "only the owner may share a document")
	}
	if _, known := s.users[body.GranteeID]; !known {
		return fail(c, fiber.StatusUnprocessableEntity, "unknown grantee")
	}
	if body.GranteeID == d.OwnerID {
		return fail(c, fiber.StatusUnprocessableEntity, "cannot share a document with its owner")
	}

	// Replace-by-grantee: a second grant for the same user updates the
	// level instead of duplicating the entry.
	replaced := false
	for i := range d.Shares {
		if d.Shares[i].GranteeID == body.GranteeID {
			d.Shares[i].Level = body.AccessLevel
			replaced = true
			break
		}
	}
	if !replaced {
		d.Shares = append(d.Shares, share{GranteeID: body.GranteeID, Level: body.AccessLevel})
	}

	s.record(userID, "document.share", "document", id, "success", fiber.Map{
		"granteeId": body.GranteeID, "accessLevel": body.AccessLevel,
	})
	return ok(c, fiber.StatusOK, nil)
}

func (s *Server) handleResolveUser(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return fail(c, fiber.StatusBadRequest, "email is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, known := s.byEmail[email]
	if !known {
		return fail(c, fiber.StatusNotFound, "user not found")
	}
	u := s.users[id]
	return ok(c, fiber.StatusOK, fiber.Map{"id": u.ID, "email": u.Email, "name": u.Name})
}

func (s *Server) handleListUsers(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]fiber.Map, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, fiber.Map{"id": u.ID, "email": u.Email, "name": u.Name})
	}
	return ok(c, fiber.StatusOK, out)
}

func (s *Server) handleAuditLogs(c *fiber.Ctx) error {
	userID := actor(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	admin := false
	for _, r := range u.Roles {
		if r == "admin" {
			admin = true
			break
		}
	}
	if !admin {
		return fail(c, fiber.StatusForbidden, "administrator role required")
	}

	out := make([]fiber.Map, 0, len(s.audit))
	for _, e := range s.audit {
		entry := fiber.Map{
			"_id":          e.ID,
			"action":       e.Action,
			"resourceType": e.ResourceType,
			"resourceId":   e.ResourceID,
			"status":       e.Status,
			"createdAt":    e.CreatedAt.Format(time.RFC3339),
		}
		if e.Details != nil {
			entry["details"] = e.Details
		}
		if au, known := s.users[e.ActorID]; known {
			entry["user"] = fiber.Map{"_id": au.ID, "email": au.Email}
		} else {
			entry["user"] = fiber.Map{"_id": e.ActorID}
		}
		out = append(out, entry)
	}
	return ok(c, fiber.StatusOK, out)
}

func (s *Server) handleListFolders(c *fiber.Ctx) error {
	userID := actor(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]fiber.Map, 0)
	for _, f := range s.folders {
		if f.OwnerID != userID {
			continue
		}
		out = append(out, fiber.Map{
			"id":        f.ID,
			"name":      f.Name,
			"path":      f.Path,
			"owner":     s.ownerJSON(f.OwnerID),
			"createdAt": f.CreatedAt.Format(time.RFC3339),
		})
	}
	return ok(c, fiber.StatusOK, out)
}

func (s *Server) handleCreateFolder(c *fiber.Ctx) error {
	userID := actor(c)

	var body struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&body); err != nil || body.Name == "" {
		return fail(c, fiber.StatusBadRequest, "folder name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f := &folder{
		ID:        uuid.NewString(),
		Name:      body.Name,
		Path:      "/" + body.Name,
		OwnerID:   userID,
		CreatedAt: time.Now().UTC(),
	}
	s.folders[f.ID] = f
	s.record(userID, "folder.create", "folder", f.ID, "success", fiber.Map{"name": f.Name})
	return ok(c, fiber.StatusCreated, fiber.Map{
		"id":        f.ID,
		"name":      f.Name,
		"path":      f.Path,
		"owner":     s.ownerJSON(f.OwnerID),
		"createdAt": f.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleDeleteFolder(c *fiber.Ctx) error {
	userID := actor(c)
	id := c.Params("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	f, found := s.folders[id]
	if !found {
		return fail(c, fiber.StatusNotFound, "folder not found")
	}
	if f.OwnerID != userID {
		return fail(c, fiber.StatusForbidden, "only the owner may delete a folder")
	}
	delete(s.folders, id)
	s.record(userID, "folder.delete", "folder", id, "success", nil)
	return ok(c, fiber.StatusOK, nil)
}

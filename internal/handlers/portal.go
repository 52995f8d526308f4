package handlers

import (
	"bytes"
	"context"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"listing-portal/internal/config"
	"listing-portal/internal/gateway"
	"listing-portal/internal/grid"
	"listing-portal/internal/listing"
	"listing-portal/internal/notify"
	"listing-portal/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthFunc returns the auth gateway bound to the browser of one request
type AuthFunc func(c *gin.Context) gateway.Auth

// PortalHandler serves the listing pages and forms
type PortalHandler struct {
	store     gateway.Store
	authFor   AuthFunc
	repo      *listing.Repository
	publisher *listing.Publisher
	gridOpts  grid.Options
	logger    *zap.Logger
}

// NewPortalHandler creates the page handler
func NewPortalHandler(store gateway.Store, blob gateway.Blob, audit gateway.AuditLog, pub gateway.Publisher,
	authFor AuthFunc, site config.SiteConfig, log *zap.Logger) *PortalHandler {
	return &PortalHandler{
		store:     store,
		authFor:   authFor,
		repo:      listing.NewRepository(store, blob, audit, pub, log),
		publisher: listing.NewPublisher(store, blob, pub, log),
		gridOpts: grid.Options{
			CoverPlaceholder:  site.CoverPlaceholder,
			ViewerPlaceholder: site.ViewerPlaceholder,
			Locale:            site.Locale,
			CurrencySymbol:    site.CurrencySymbol,
			CitySuffix:        site.CitySuffix,
		},
		logger: log,
	}
}

// request is the state rebuilt for every HTTP request
type request struct {
	ctx     context.Context
	notices *notify.Collector
	auth    gateway.Auth
	session *session.Controller
	grid    *grid.Grid
	view    session.View
	page    session.Page
	filter  grid.FilterEvent
}

func (h *PortalHandler) begin(c *gin.Context, page session.Page) *request {
	r := &request{
		ctx:     c.Request.Context(),
		notices: notify.NewCollector(),
		auth:    h.authFor(c),
		page:    page,
	}
	r.session = session.NewController(r.auth, h.store, r.notices, h.logger, page)
	r.grid = grid.New(h.repo, r.auth, h.store, r.notices, h.logger, h.gridOpts)
	r.view = r.session.Refresh(r.ctx)
	return r
}

func (r *request) end() {
	r.session.Close()
}

// loadGrid fetches the cards and applies the filter from the query string
func (r *request) loadGrid(c *gin.Context) error {
	_ = c.ShouldBindQuery(&r.filter)
	if err := r.grid.Load(r.ctx); err != nil {
		return err
	}
	if !r.filter.IsZero() {
		r.grid.HandleFilter(r.filter)
	}
	return nil
}

// Home renders the grid page. ?view=<id> opens the photo viewer.
func (h *PortalHandler) Home(c *gin.Context) {
	r := h.begin(c, session.PageHome)
	defer r.end()

	status := http.StatusOK
	if err := r.loadGrid(c); err != nil {
		status = statusFor(err)
	} else if id := c.Query("view"); id != "" {
		if _, err := r.grid.HandleViewPhotos(grid.ViewPhotosEvent{ListingID: id}); err != nil {
			notify.Warning(r.notices, "Could not open the photos: %s", gateway.Message(err))
		}
	}
	h.render(c, status, r)
}

// PublishPage renders the publish form for admins
func (h *PortalHandler) PublishPage(c *gin.Context) {
	r := h.begin(c, session.PagePublish)
	defer r.end()

	status := http.StatusOK
	if !r.view.IsAdmin() {
		status = http.StatusForbidden
	}
	h.render(c, status, r)
}

// Publish handles the multipart publish form
func (h *PortalHandler) Publish(c *gin.Context) {
	r := h.begin(c, session.PagePublish)
	defer r.end()

	if !r.view.IsAdmin() {
		if r.view.State == session.StateAnonymous {
			notify.Error(r.notices, "You must be signed in to publish a listing.")
		}
		h.render(c, http.StatusForbidden, r)
		return
	}

	sub := listing.Submission{
		Title:        c.PostForm("title"),
		Description:  c.PostForm("description"),
		Address:      c.PostForm("address"),
		Price:        c.PostForm("price"),
		PropertyType: c.PostForm("property_type"),
		Bedrooms:     c.PostForm("bedrooms"),
		Bathrooms:    c.PostForm("bathrooms"),
		AreaM2:       c.PostForm("area_m2"),
		Status:       c.PostForm("status"),
	}
	if form, err := c.MultipartForm(); err == nil {
		sub.Files = formFiles(form.File["photos"])
	}

	if _, err := h.publisher.Publish(r.ctx, r.auth, sub, r.notices); err != nil {
		h.render(c, statusFor(err), r)
		return
	}

	r.page = session.PageHome
	r.session.Page(session.PageHome)
	r.view = r.session.State()
	status := http.StatusCreated
	if err := r.grid.Load(r.ctx); err != nil {
		status = statusFor(err)
	}
	h.render(c, status, r)
}

func formFiles(headers []*multipart.FileHeader) []listing.File {
	files := make([]listing.File, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		files = append(files, listing.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return files
}

// DeleteListing handles the admin delete button of a card
func (h *PortalHandler) DeleteListing(c *gin.Context) {
	r := h.begin(c, session.PageHome)
	defer r.end()

	if !r.view.ShowDelete {
		notify.Error(r.notices, "Only administrators can delete listings.")
		status := http.StatusForbidden
		if err := r.grid.Load(r.ctx); err != nil {
			status = statusFor(err)
		}
		h.render(c, status, r)
		return
	}

	if err := r.grid.Load(r.ctx); err != nil {
		h.render(c, statusFor(err), r)
		return
	}

	status := http.StatusOK
	if err := r.grid.HandleDelete(r.ctx, grid.DeleteEvent{ListingID: c.Param("id")}); err != nil {
		status = statusFor(err)
	}
	h.render(c, status, r)
}

type credentialsForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

func (f credentialsForm) complete() bool {
	return strings.TrimSpace(f.Email) != "" && f.Password != ""
}

// Login handles the sign-in form
func (h *PortalHandler) Login(c *gin.Context) {
	h.credentials(c, func(r *request, f credentialsForm) error {
		return r.session.SignIn(r.ctx, f.Email, f.Password)
	})
}

// Signup handles the sign-up form
func (h *PortalHandler) Signup(c *gin.Context) {
	h.credentials(c, func(r *request, f credentialsForm) error {
		return r.session.SignUp(r.ctx, f.Email, f.Password)
	})
}

func (h *PortalHandler) credentials(c *gin.Context, submit func(*request, credentialsForm) error) {
	r := h.begin(c, session.PageHome)
	defer r.end()

	var form credentialsForm
	status := http.StatusOK
	if err := c.ShouldBind(&form); err != nil || !form.complete() {
		notify.Error(r.notices, "Please enter your email and password.")
		status = http.StatusBadRequest
	} else if err := submit(r, form); err != nil {
		status = statusFor(err)
	}
	r.view = r.session.State()

	if err := r.grid.Load(r.ctx); err != nil && status == http.StatusOK {
		status = statusFor(err)
	}
	h.render(c, status, r)
}

// Logout ends the session. The nav and banner buttons both post here.
func (h *PortalHandler) Logout(c *gin.Context) {
	r := h.begin(c, session.PageHome)
	defer r.end()

	status := http.StatusOK
	if err := r.session.SignOut(r.ctx); err != nil {
		status = statusFor(err)
	}
	r.view = r.session.State()

	if err := r.grid.Load(r.ctx); err != nil && status == http.StatusOK {
		status = statusFor(err)
	}
	h.render(c, status, r)
}

type contactForm struct {
	Name    string `form:"name"`
	Email   string `form:"email"`
	Message string `form:"message"`
}

// Contact handles the contact form. Every field is required.
func (h *PortalHandler) Contact(c *gin.Context) {
	r := h.begin(c, session.PageHome)
	defer r.end()

	var form contactForm
	_ = c.ShouldBind(&form)
	name := strings.TrimSpace(form.Name)

	status := http.StatusOK
	if name == "" || strings.TrimSpace(form.Email) == "" || strings.TrimSpace(form.Message) == "" {
		notify.Warning(r.notices, "Please fill in all fields.")
		status = http.StatusBadRequest
	} else {
		h.logger.Info("Contact message received",
			zap.String("name", name),
			zap.String("email", strings.TrimSpace(form.Email)),
			zap.Int("length", len(form.Message)))
		notify.Success(r.notices, "Thank you for your message, %s! We will get back to you soon.", name)
	}

	if err := r.grid.Load(r.ctx); err != nil && status == http.StatusOK {
		status = statusFor(err)
	}
	h.render(c, status, r)
}

// ListListings returns the filtered cards as JSON
func (h *PortalHandler) ListListings(c *gin.Context) {
	r := h.begin(c, session.PageHome)
	defer r.end()

	if err := r.loadGrid(c); err != nil {
		c.JSON(statusFor(err), gin.H{"error": grid.MessageLoadFailed})
		return
	}

	cards := r.grid.Visible()
	c.JSON(http.StatusOK, gin.H{
		"listings": cards,
		"count":    len(cards),
		"is_admin": r.grid.IsAdmin(),
		"message":  r.grid.Message(),
		"notices":  r.notices.Notices(),
	})
}

// RequireAdmin aborts requests whose session is not an admin
func (h *PortalHandler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		user, err := h.authFor(c).CurrentUser(ctx)
		if err != nil {
			c.AbortWithStatusJSON(statusFor(err), gin.H{"error": gateway.Message(err)})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gateway.ErrNoSession.Error()})
			return
		}
		profile, err := h.store.GetProfile(ctx, user.ID)
		if err != nil {
			h.logger.Warn("Admin check failed", zap.String("user_id", user.ID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "could not verify permissions"})
			return
		}
		if !profile.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

func (h *PortalHandler) render(c *gin.Context, status int, r *request) {
	var gridHTML bytes.Buffer
	if r.page == session.PageHome {
		if err := r.grid.Render(&gridHTML); err != nil {
			h.logger.Error("Failed to render grid", zap.Error(err))
		}
	}

	data := pageData{
		Page:          r.page,
		View:          r.view,
		Notices:       r.notices.Notices(),
		Grid:          template.HTML(gridHTML.String()),
		Filter:        r.filter,
		TypeOptions:   propertyTypeOptions,
		StatusOptions: statusOptions,
		BedroomOpts:   bedroomOptions,
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error("Failed to render page", zap.Error(err))
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// statusFor maps a gateway error kind to an HTTP status
func statusFor(err error) int {
	switch gateway.KindOf(err) {
	case gateway.KindNotFound:
		return http.StatusNotFound
	case gateway.KindUnauthorized:
		return http.StatusUnauthorized
	case gateway.KindInvalid:
		return http.StatusBadRequest
	case gateway.KindConflict:
		return http.StatusConflict
	case gateway.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

package stripe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/signetapp/signet/internal/auth"
	"github.com/signetapp/signet/internal/metrics"
	"github.com/signetapp/signet/internal/models"
	"github.com/signetapp/signet/internal/pdf"
	"github.com/signetapp/signet/internal/sigcache"
	"github.com/signetapp/signet/internal/store"
)

// Pledge documents are stamped at a fixed spot on the first page of the
// template, in PDF points from the bottom-left corner.
const (
	PledgeStampPage = 0
	PledgeStampX    = 77.0
	PledgeStampY    = 638.0

	pledgeTitle = "Founding Supporter Pledge"
)

// Metadata keys the landing-page checkout sets on the Stripe session.
const (
	metaSource       = "source"
	metaUserID       = "userId"
	metaSignatureKey = "signatureKey"

	sourceLanding = "landing"
)

// Broadcaster pushes document events to connected owners. Satisfied by
// *ws.Hub; nil disables broadcasting.
type Broadcaster interface {
	BroadcastDocumentCompleted(doc *models.Document)
}

// Provisioner turns a completed pledge checkout into a sealed document
// with the purchaser's signature stamped in.
type Provisioner struct {
	store     *store.Store
	sigs      sigcache.Cache
	templates *pdf.TemplateSource
	hub       Broadcaster
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(st *store.Store, sigs sigcache.Cache, templates *pdf.TemplateSource, hub Broadcaster) *Provisioner {
	return &Provisioner{
		store:     st,
		sigs:      sigs,
		templates: templates,
		hub:       hub,
	}
}

// HandlePledgeCheckout provisions the pledge record set for a completed
// checkout session. Sessions from other flows are acknowledged without
// action. A user reference that cannot be resolved is an error: the
// purchase has no owner and Stripe must retry after the account issue is
// fixed.
func (p *Provisioner) HandlePledgeCheckout(ctx context.Context, session CheckoutSession) error {
	if session.Metadata[metaSource] != sourceLanding {
		log.Info().
			Str("session_id", session.ID).
			Str("source", session.Metadata[metaSource]).
			Msg("Checkout session ignored (not a landing pledge)")
		return nil
	}

	user, err := p.resolveUser(session)
	if err != nil {
		return err
	}

	imageDataURL := p.lookupSignatureImage(ctx, session.Metadata[metaSignatureKey])

	template, err := p.templates.Bytes()
	if err != nil {
		return fmt.Errorf("load pledge template: %w", err)
	}

	stamp := pdf.StampRequest{Page: PledgeStampPage, X: PledgeStampX, Y: PledgeStampY}
	kind := metrics.StampKindTyped
	typedText := user.Name
	if imageDataURL != "" {
		stamp.ImageDataURL = imageDataURL
		kind = metrics.StampKindDrawn
		typedText = ""
	} else {
		stamp.Text = typedText
	}

	stamped, err := pdf.Stamp(template, stamp)
	if err != nil {
		return fmt.Errorf("stamp pledge: %w", err)
	}

	doc, err := p.store.ProvisionPledge(ctx, store.PledgeProvision{
		User:           user,
		Title:          pledgeTitle,
		Data:           base64.StdEncoding.EncodeToString(stamped),
		RecipientToken: auth.NewRecipientToken(),
		FieldPage:      PledgeStampPage,
		FieldX:         PledgeStampX,
		FieldY:         PledgeStampY,
		SignatureImage: imageDataURL,
		TypedText:      typedText,
	})
	if err != nil {
		return fmt.Errorf("provision pledge: %w", err)
	}

	metrics.SignaturesStampedTotal.WithLabelValues(kind).Inc()
	metrics.DocumentsSealedTotal.WithLabelValues("webhook").Inc()

	if p.hub != nil {
		p.hub.BroadcastDocumentCompleted(doc)
	}

	log.Info().
		Int64("document_id", doc.ID).
		Int64("user_id", user.ID).
		Str("session_id", session.ID).
		Str("stamp", kind).
		Msg("Pledge document provisioned")
	return nil
}

func (p *Provisioner) resolveUser(session CheckoutSession) (*models.User, error) {
	raw := strings.TrimSpace(session.Metadata[metaUserID])
	if raw == "" {
		return nil, fmt.Errorf("checkout session %s carries no user reference", session.ID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("checkout session %s user reference %q is not numeric", session.ID, raw)
	}
	user, err := p.store.GetUserByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("checkout session %s references unknown user %d", session.ID, id)
		}
		return nil, fmt.Errorf("lookup user %d: %w", id, err)
	}
	return user, nil
}

// lookupSignatureImage fetches the drawn signature cached at checkout
// time. A missing or expired entry falls back to the typed name; the
// purchase must still go through.
func (p *Provisioner) lookupSignatureImage(ctx context.Context, key string) string {
	key = strings.TrimSpace(key)
	if key == "" || p.sigs == nil {
		return ""
	}
	dataURL, err := p.sigs.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, sigcache.ErrNotFound) {
			log.Warn().Err(err).Str("key", key).Msg("Signature cache lookup failed")
		}
		return ""
	}
	return dataURL
}

package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PathaoSecrets holds the OAuth bundle for the Pathao merchant API.
type PathaoSecrets struct {
	// ClientID is the OAuth client identifier.
	ClientID string `bson:"clientId" json:"client_id"`
	// ClientSecret is the OAuth client secret.
	ClientSecret string `bson:"clientSecret" json:"-"`
	// Username is the merchant account username for the password grant.
	Username string `bson:"username" json:"username"`
	// Password is the merchant account password for the password grant.
	Password string `bson:"password" json:"-"`
	// StoreID is the merchant store issuing consignments.
	StoreID string `bson:"storeId" json:"store_id"`
}

// SteadfastSecrets holds the static API key pair for the Steadfast API.
type SteadfastSecrets struct {
	// APIKey is the merchant API key header value.
	APIKey string `bson:"apiKey" json:"-"`
	// SecretKey is the merchant secret key header value.
	SecretKey string `bson:"secretKey" json:"-"`
}

// Credential is one provider's credential record. Exactly one active record
// per provider is consulted per operation.
type Credential struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	// Provider is the courier this credential set belongs to.
	Provider string `bson:"provider" json:"provider"`
	// IsActive marks whether this credential set may be used.
	IsActive bool `bson:"isActive" json:"is_active"`
	// Pathao is set when Provider is pathao.
	Pathao *PathaoSecrets `bson:"pathao,omitempty" json:"pathao,omitempty"`
	// Steadfast is set when Provider is steadfast.
	Steadfast *SteadfastSecrets `bson:"steadfast,omitempty" json:"steadfast,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updated_at"`
}

// CacheKey identifies this exact credential revision. Rotating or updating a
// credential changes the key, which invalidates any adapter (and token cache)
// built from the previous revision.
func (c Credential) CacheKey() string {
	return fmt.Sprintf("%s:%s:%d", c.Provider, c.ID.Hex(), c.UpdatedAt.UnixNano())
}

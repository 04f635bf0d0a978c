// Package backup defines the contract between the keystore and a remote
// backup service. The wire format of the backup API is owned by the
// service; this package only fixes what a client consumes from the store
// and how snapshots are identified.
package backup

import (
	"context"
	"crypto/sha256"

	"github.com/mr-tron/base58"

	"github.com/kanthgithub/iden3js/keystore"
)

// Vault is the keystore surface a backup client consumes: whole-store
// export/import plus signing for authenticated uploads.
type Vault interface {
	Export() (string, error)
	Import(blob string) error
	Sign(address string, data []byte) (*keystore.SignatureEnvelope, error)
}

// SnapshotID content-addresses one exported blob.
type SnapshotID string

// ComputeSnapshotID derives the identifier for a blob: base58 of its
// sha256. Identical store contents under the same ephemeral key still
// produce distinct blobs (random nonces), so the ID names the blob, not
// the state.
func ComputeSnapshotID(blob string) SnapshotID {
	sum := sha256.Sum256([]byte(blob))
	return SnapshotID(base58.Encode(sum[:]))
}

// Client ships encrypted store snapshots to a remote endpoint and back.
type Client interface {
	// Backup exports the vault and uploads the blob, returning its ID.
	Backup(ctx context.Context, v Vault) (SnapshotID, error)
	// Restore downloads the identified blob and imports it into the vault.
	Restore(ctx context.Context, v Vault, id SnapshotID) error
}

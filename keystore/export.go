package keystore

import (
	"encoding/json"
	"fmt"
)

const backupVersion = 1

// backupPayload is the serialized entry set of the whole store namespace.
// Values stay in their at-rest encrypted form; the payload as a whole is
// additionally encrypted under the ephemeral key.
type backupPayload struct {
	Version int               `json:"version"`
	Entries map[string]string `json:"entries"`
}

// Export serializes every entry in the store namespace and encrypts the
// set under the current ephemeral key. Export provides no snapshot
// atomicity against concurrent mutation; callers serialize externally.
func (s *Store) Export() (string, error) {
	key, err := s.sessionKey()
	if err != nil {
		return "", err
	}
	keys, err := s.storage.ListKeys("")
	if err != nil {
		return "", fmt.Errorf("keystore: enumerate namespace: %w", err)
	}
	entries := make(map[string]string, len(keys))
	for _, k := range keys {
		v, err := s.storage.Get(k)
		if err != nil {
			return "", fmt.Errorf("keystore: export %s: %w", k, err)
		}
		entries[k] = v
	}
	raw, err := json.Marshal(backupPayload{Version: backupVersion, Entries: entries})
	if err != nil {
		return "", fmt.Errorf("keystore: encode backup: %w", err)
	}
	blob, err := s.prim.Encrypt(key, raw)
	if err != nil {
		return "", fmt.Errorf("keystore: encrypt backup: %w", err)
	}
	s.log.Info("store exported", "entries", len(entries))
	return blob, nil
}

// Import decrypts blob with the current ephemeral key and writes every
// contained entry back, overwriting same-keyed entries. A blob that
// decrypts but does not parse as an entry set fails with
// ErrMalformedBackup.
func (s *Store) Import(blob string) error {
	key, err := s.sessionKey()
	if err != nil {
		return err
	}
	raw, err := s.prim.Decrypt(key, blob)
	if err != nil {
		s.metrics.decryptFailures.Inc()
		return fmt.Errorf("%w: backup blob", ErrDecryptionFailed)
	}
	var payload backupPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBackup, err)
	}
	if payload.Version != backupVersion || payload.Entries == nil {
		return ErrMalformedBackup
	}
	for k, v := range payload.Entries {
		if err := s.persist(k, v); err != nil {
			return err
		}
	}
	s.log.Info("store imported", "entries", len(payload.Entries))
	return nil
}

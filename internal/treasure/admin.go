package treasure

import (
	"fmt"

	"DiamondLedger/internal/errs"
	"DiamondLedger/internal/maptile"
)

// Register adds a checkpoint under an explicit key without payment.
// Operator only; used to migrate or seed locations.
func (m *Manager) Register(caller string, key uint64, owner string, p MintParams) error {
	if caller != m.operator {
		return fmt.Errorf("%w: only the operator can register checkpoints", errs.ErrUnauthorized)
	}
	if err := validateContent(p.Title, p.Description, p.ImageURL, p.VideoURL); err != nil {
		return err
	}
	tile, err := maptile.FromGPS(p.Latitude, p.Longitude)
	if err != nil {
		return err
	}
	return m.checkpoints.Insert(Checkpoint{
		PKey:        key,
		Owner:       owner,
		Title:       p.Title,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		VideoURL:    p.VideoURL,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		Tile:        tile,
		Status:      StatusCreated,
		ExpiresAt:   m.now() + OwnershipTerm,
		CreatedAt:   m.now(),
	})
}

// Modify updates a checkpoint's descriptive content. Allowed for the
// owner, the conqueror and the operator. An image change made by the
// conqueror lands in the conqueror image slot so the owner's original is
// preserved.
func (m *Manager) Modify(caller string, key uint64, title, description, imageURL, videoURL string) error {
	cp, ok := m.checkpoints.Get(key)
	if !ok {
		return fmt.Errorf("%w: checkpoint %d", errs.ErrNotFound, key)
	}
	if caller != cp.Owner && caller != cp.Conqueror && caller != m.operator {
		return fmt.Errorf("%w: checkpoint %d can only be modified by its owner or conqueror", errs.ErrUnauthorized, key)
	}
	if err := validateContent(title, description, imageURL, videoURL); err != nil {
		return err
	}
	return m.checkpoints.Modify(key, func(c *Checkpoint) {
		c.Title = title
		c.Description = description
		c.VideoURL = videoURL
		if caller == cp.Conqueror && caller != cp.Owner {
			c.ConquerorImageURL = imageURL
		} else {
			c.ImageURL = imageURL
		}
	})
}

// ModifyImage replaces only the image. Same access rules as Modify.
func (m *Manager) ModifyImage(caller string, key uint64, imageURL string) error {
	cp, ok := m.checkpoints.Get(key)
	if !ok {
		return fmt.Errorf("%w: checkpoint %d", errs.ErrNotFound, key)
	}
	if caller != cp.Owner && caller != cp.Conqueror && caller != m.operator {
		return fmt.Errorf("%w: checkpoint %d image can only be changed by its owner or conqueror", errs.ErrUnauthorized, key)
	}
	if len(imageURL) > MaxURLLen {
		return fmt.Errorf("%w: url exceeds %d characters", errs.ErrBounds, MaxURLLen)
	}
	return m.checkpoints.Modify(key, func(c *Checkpoint) {
		if caller == cp.Conqueror && caller != cp.Owner {
			c.ConquerorImageURL = imageURL
		} else {
			c.ImageURL = imageURL
		}
	})
}

// ModifyGPS moves a checkpoint to new coordinates and reclaims the matching
// map tile. The target tile must be free.
func (m *Manager) ModifyGPS(caller string, key uint64, lat, lon float64) error {
	cp, ok := m.checkpoints.Get(key)
	if !ok {
		return fmt.Errorf("%w: checkpoint %d", errs.ErrNotFound, key)
	}
	if caller != cp.Owner && caller != m.operator {
		return fmt.Errorf("%w: checkpoint %d can only be moved by its owner", errs.ErrUnauthorized, key)
	}
	tile, err := maptile.FromGPS(lat, lon)
	if err != nil {
		return err
	}
	if holder, taken := m.tileHolder(tile); taken && tile != cp.Tile {
		return fmt.Errorf("%w: map tile %s is held by %s", errs.ErrInvariant, tile, holder)
	}
	return m.checkpoints.Modify(key, func(c *Checkpoint) {
		c.Latitude = lat
		c.Longitude = lon
		c.Tile = tile
	})
}

// SetJSONData replaces the free-form metadata blob. Operator only.
func (m *Manager) SetJSONData(caller string, key uint64, jsonData string) error {
	if caller != m.operator {
		return fmt.Errorf("%w: only the operator can set checkpoint metadata", errs.ErrUnauthorized)
	}
	return m.checkpoints.Modify(key, func(c *Checkpoint) {
		c.JSONData = jsonData
	})
}

// SetSecretCode replaces the stored secret hash. Operator only.
func (m *Manager) SetSecretCode(caller string, key uint64, secret string) error {
	if caller != m.operator {
		return fmt.Errorf("%w: only the operator can set secret codes", errs.ErrUnauthorized)
	}
	return m.checkpoints.Modify(key, func(c *Checkpoint) {
		c.SecretCode = secret
	})
}

// Activate arms a checkpoint with a secret code and renews its ownership
// term. Operator only.
func (m *Manager) Activate(caller string, key uint64, secret string) error {
	if caller != m.operator {
		return fmt.Errorf("%w: only the operator can activate checkpoints", errs.ErrUnauthorized)
	}
	return m.checkpoints.Modify(key, func(c *Checkpoint) {
		c.Status = StatusActive
		c.SecretCode = secret
		c.ExpiresAt = m.now() + OwnershipTerm
	})
}

// SetRankingPoints updates the derived ranking score. Operator only.
func (m *Manager) SetRankingPoints(caller string, key uint64, points uint64) error {
	if caller != m.operator {
		return fmt.Errorf("%w: only the operator can update rankings", errs.ErrUnauthorized)
	}
	return m.checkpoints.Modify(key, func(c *Checkpoint) {
		c.RankingPoints = points
	})
}

// RenewExpiry extends the ownership term by another full term from now.
// Operator only.
func (m *Manager) RenewExpiry(caller string, key uint64) error {
	if caller != m.operator {
		return fmt.Errorf("%w: only the operator can renew ownership", errs.ErrUnauthorized)
	}
	return m.checkpoints.Modify(key, func(c *Checkpoint) {
		c.ExpiresAt = m.now() + OwnershipTerm
	})
}

// ResetSecret lets the owner or the conqueror rearm an active checkpoint
// with a new secret.
func (m *Manager) ResetSecret(caller string, key uint64, secret string) error {
	cp, ok := m.checkpoints.Get(key)
	if !ok {
		return fmt.Errorf("%w: checkpoint %d", errs.ErrNotFound, key)
	}
	if caller != cp.Owner && caller != cp.Conqueror {
		return fmt.Errorf("%w: checkpoint %d secret can only be reset by its owner or conqueror", errs.ErrUnauthorized, key)
	}
	if cp.Status != StatusActive {
		return fmt.Errorf("%w: checkpoint %d is not active", errs.ErrInvariant, key)
	}
	return m.checkpoints.Modify(key, func(c *Checkpoint) {
		c.SecretCode = secret
	})
}

// Erase removes a checkpoint and its sale listing. Allowed for the owner
// and the operator.
func (m *Manager) Erase(caller string, key uint64) error {
	cp, ok := m.checkpoints.Get(key)
	if !ok {
		return fmt.Errorf("%w: checkpoint %d", errs.ErrNotFound, key)
	}
	if caller != cp.Owner && caller != m.operator {
		return fmt.Errorf("%w: checkpoint %d can only be erased by its owner", errs.ErrUnauthorized, key)
	}
	if _, ok := m.listings.Get(key); ok {
		if err := m.listings.Erase(key); err != nil {
			return err
		}
	}
	return m.checkpoints.Erase(key)
}

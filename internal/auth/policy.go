package auth

import "github.com/isdelr/adboard-be/internal/models"

// CanMutate reports whether actor may update or delete a resource owned by
// ownerID: the owner and administrators may, nobody else can.
func CanMutate(actor models.User, ownerID int64) bool {
	return actor.ID == ownerID || actor.Role == models.RoleAdmin
}

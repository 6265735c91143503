package users

import (
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/types"
)

// AddressSnapshot freezes the recipient and destination for a shipment.
func AddressSnapshot(user *models.User, address *models.Address) types.AddressSnapshot {
	snap := types.AddressSnapshot{}
	if user != nil {
		snap.RecipientName = user.FullName()
		snap.Phone = user.Phone
	}
	if address != nil {
		snap.AddressID = address.ID
		snap.Line1 = address.Line1
		snap.Line2 = address.Line2
		snap.City = address.City
		snap.Region = address.Region
		snap.PostalCode = address.PostalCode
		snap.Country = address.Country
		snap.Reference = address.Reference
	}
	return snap
}

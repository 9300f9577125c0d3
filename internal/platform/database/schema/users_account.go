package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table             string
	ID                string
	Username          string
	Email             string
	Password          string
	Name              string
	UserType          string
	Profile           string
	IsActive          string
	IsDeleted         string
	GoogleID          string
	FacebookID        string
	FirebaseUID       string
	LoginRetryLimit   string
	LoginReactiveTime string
	ResetCode         string
	ResetExpiresAt    string
	AddedBy           string
	UpdatedBy         string
	CreatedAt         string
	UpdatedAt         string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:             "users.account",
	ID:                "id",
	Username:          "username",
	Email:             "email",
	Password:          "passwordhash",
	Name:              "name",
	UserType:          "usertype",
	Profile:           "profile",
	IsActive:          "isactive",
	IsDeleted:         "isdeleted",
	GoogleID:          "googleid",
	FacebookID:        "facebookid",
	FirebaseUID:       "firebaseuid",
	LoginRetryLimit:   "loginretrylimit",
	LoginReactiveTime: "loginreactivetime",
	ResetCode:         "resetcode",
	ResetExpiresAt:    "resetexpiresat",
	AddedBy:           "addedby",
	UpdatedBy:         "updatedby",
	CreatedAt:         "createdat",
	UpdatedAt:         "updatedat",
}

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Username, t.Email, t.Password, t.Name, t.UserType, t.Profile,
		t.IsActive, t.IsDeleted, t.GoogleID, t.FacebookID, t.FirebaseUID,
		t.LoginRetryLimit, t.LoginReactiveTime, t.ResetCode, t.ResetExpiresAt,
		t.AddedBy, t.UpdatedBy, t.CreatedAt, t.UpdatedAt,
	}
}

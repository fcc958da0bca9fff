package helpers

import "golang.org/x/crypto/bcrypt"

// PasswordCost is the bcrypt cost for stored user passwords.
const PasswordCost = bcrypt.DefaultCost

func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareHashAndPassword reports whether plain matches hash. Users without a
// stored hash never match.
func CompareHashAndPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

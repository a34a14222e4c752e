package rpg

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/pbkdf2"
)

// Параметры контрольной суммы сертификата достижений.
// Менять нельзя: выданные ссылки на сертификаты должны оставаться валидными.
const (
	certificateSalt       = "salt is very yummy but sugar is more yummy"
	certificateIterations = 100000
	certificateKeyLen     = 18
	certificateModulus    = 961748927
)

// CertificateChecksum возвращает контрольную сумму публичной ссылки
// на сертификат: PBKDF2-HMAC-SHA256 от секретного ключа, пользователя
// и числа открытых достижений, в hex.
func CertificateChecksum(key string, userID int64, num int) string {
	payload := key + modPow3(userID) + modPow3(int64(num)) + "eyes"
	sum := pbkdf2.Key(
		[]byte(payload),
		[]byte(certificateSalt),
		certificateIterations,
		certificateKeyLen,
		sha256.New,
	)
	return hex.EncodeToString(sum)
}

// modPow3 возвращает десятичную запись 3^n mod certificateModulus.
func modPow3(n int64) string {
	r := new(big.Int).Exp(
		big.NewInt(3),
		big.NewInt(n),
		big.NewInt(certificateModulus),
	)
	return fmt.Sprintf("%d", r)
}

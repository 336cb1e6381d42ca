package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	letterBytes  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numberBytes  = "0123456789"
	alphanumeric = letterBytes + numberBytes
)

func GenerateRandomString(length int) string {
	return generateRandom(length, alphanumeric)
}

func GenerateRandomNumericString(length int) string {
	return generateRandom(length, numberBytes)
}

func generateRandom(length int, charset string) string {
	result := make([]byte, length)
	charsetLength := big.NewInt(int64(len(charset)))

	for i := range result {
		num, _ := rand.Int(rand.Reader, charsetLength)
		result[i] = charset[num.Int64()]
	}

	return string(result)
}

// GenerateTripNumber builds a human-readable trip reference, e.g. TM-20260830-4F7K2Q.
func GenerateTripNumber() string {
	return fmt.Sprintf("TM-%s-%s", time.Now().UTC().Format("20060102"), generateRandom(6, "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"))
}

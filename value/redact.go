// Copyright 2014 Volker Dobler.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

import "strings"

// Mask returns the redacted form of a raw secret value: six asterisks
// for short secrets, or the first four and last four characters
// separated by six asterisks for longer ones.
func Mask(secret string) string {
	if len(secret) == 0 {
		return ""
	}
	if len(secret) <= 20 {
		return "******"
	}
	return secret[:4] + "******" + secret[len(secret)-4:]
}

// Redact replaces every occurrence of secret in s with its masked
// form. Empty secrets are never redacted (there is nothing to find).
func Redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, Mask(secret))
}

// RedactAll applies Redact for every secret in secrets, in order.
func RedactAll(s string, secrets []string) string {
	for _, secret := range secrets {
		s = Redact(s, secret)
	}
	return s
}

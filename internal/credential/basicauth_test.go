// Copyright 2021 The forwarder Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

package credential

import (
	"reflect"
	"testing"
)

func TestNewCredentialsFromUserinfo(t *testing.T) {
	tests := []struct {
		name     string
		userinfo string
		want     *Credentials
		wantErr  bool
	}{
		{name: "missing credential - empty", userinfo: "", wantErr: true},
		{name: "credential required - no separator", userinfo: "username", wantErr: true},
		{
			name:     "empty username is valid",
			userinfo: ":password",
			want:     &Credentials{Username: "", Password: "password"},
		},
		{
			name:     "empty password is valid",
			userinfo: "username:",
			want:     &Credentials{Username: "username", Password: ""},
		},
		{
			name:     "empty username and password are valid",
			userinfo: ":",
			want:     &Credentials{Username: "", Password: ""},
		},
		{
			name:     "1-char username and password are valid",
			userinfo: "u:p",
			want:     &Credentials{Username: "u", Password: "p"},
		},
		{
			name:     "ok",
			userinfo: "username:password",
			want:     &Credentials{Username: "username", Password: "password"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewCredentialsFromUserinfo(tt.userinfo)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCredentialsFromUserinfo() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NewCredentialsFromUserinfo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCredentials_ToBase64(t *testing.T) {
	c := &Credentials{Username: "user", Password: "pass"}
	if got, want := c.ToBase64(), "dXNlcjpwYXNz"; got != want {
		t.Errorf("ToBase64() = %v, want %v", got, want)
	}
}

package models

import "time"

// Target represents a registered remote host reachable for deployment
type Target struct {
	ID         int64     `json:"id" doc:"Assigned target identifier"`
	Name       string    `json:"name" doc:"Display name" example:"staging-vm"`
	Address    string    `json:"address" doc:"Network address (host or host:port)" example:"10.0.0.12"`
	SSHUser    string    `json:"sshUser" doc:"Remote login account" example:"ubuntu"`
	SSHKeyPath string    `json:"sshKeyPath" doc:"Path to the private key used for authentication" example:"~/.ssh/id_ed25519"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TargetCreate is the payload for registering a new target
type TargetCreate struct {
	Name       string `json:"name" doc:"Display name" example:"staging-vm"`
	Address    string `json:"address" doc:"Network address (host or host:port)" example:"10.0.0.12"`
	SSHUser    string `json:"sshUser" doc:"Remote login account" example:"ubuntu"`
	SSHKeyPath string `json:"sshKeyPath" doc:"Path to the private key used for authentication" example:"~/.ssh/id_ed25519"`
}

// rird - gossip-protocol activity-record node
// Copyright (C) 2026 rird-project
//
// This file is part of rird.
//
// rird is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// rird is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with rird. If not, see <https://www.gnu.org/licenses/>.

// Package record defines the canonical, content-addressed activity record:
// the atomic unit of the marketplace protocol (spec C2).
package record

import "errors"

// Version is the current protocol version carried by every record.
const Version = 1

// Type identifies the kind of activity record.
type Type string

// Public record types are broadcast on the gossip topic.
const (
	TypeAgentOnline          Type = "agent.online"
	TypeAgentOffline         Type = "agent.offline"
	TypeTaskPosted           Type = "task.posted"
	TypeTaskAssigned         Type = "task.assigned"
	TypeTaskCompleted        Type = "task.completed"
	TypeTaskVerified         Type = "task.verified"
	TypeTaskSettled          Type = "task.settled"
	TypeTaskFailed           Type = "task.failed"
	TypeReputationAttestation Type = "reputation.attestation"
	TypeSpawnNew             Type = "spawn.new"
	TypeSpawnDead            Type = "spawn.dead"
	TypeContentPublished     Type = "content.published"
	TypeTaskFlag             Type = "task.flag"
	TypeGovernanceWarn       Type = "governance.warn"
	TypeGovernanceSuspend    Type = "governance.suspend"
	TypeGovernanceKill       Type = "governance.kill"
)

// Private record types are exchanged only over direct peer streams and are
// never broadcast to the gossip topic.
const (
	TypeTaskBid          Type = "task.bid"
	TypeTaskCounter      Type = "task.counter"
	TypeTaskAccept       Type = "task.accept"
	TypeTaskDeliver      Type = "task.deliver"
	TypeEscrowCoordinate Type = "escrow.coordinate"
)

// IsPublic reports whether records of this type are broadcast.
func (t Type) IsPublic() bool {
	switch t {
	case TypeAgentOnline, TypeAgentOffline, TypeTaskPosted, TypeTaskAssigned,
		TypeTaskCompleted, TypeTaskVerified, TypeTaskSettled, TypeTaskFailed,
		TypeReputationAttestation, TypeSpawnNew, TypeSpawnDead,
		TypeContentPublished, TypeTaskFlag, TypeGovernanceWarn,
		TypeGovernanceSuspend, TypeGovernanceKill:
		return true
	default:
		return false
	}
}

// IsPrivate reports whether records of this type travel only over direct
// peer streams.
func (t Type) IsPrivate() bool {
	switch t {
	case TypeTaskBid, TypeTaskCounter, TypeTaskAccept, TypeTaskDeliver, TypeEscrowCoordinate:
		return true
	default:
		return false
	}
}

// IsKnown reports whether t is one of the closed set of record types.
func (t Type) IsKnown() bool {
	return t.IsPublic() || t.IsPrivate()
}

var (
	ErrUnknownType      = errors.New("record: unknown record type")
	ErrMissingField     = errors.New("record: required field missing")
	ErrWrongVersion     = errors.New("record: unsupported protocol version")
	ErrIDMismatch       = errors.New("record: id does not match canonical content")
	ErrBadSignature     = errors.New("record: signature verification failed")
	ErrClockDrift       = errors.New("record: timestamp outside acceptable drift")
	ErrCanonicalization = errors.New("record: payload could not be canonicalized")
)

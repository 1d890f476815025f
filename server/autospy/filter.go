package autospy

import "github.com/google/uuid"

// Ineligible reports if candidate must not be spectated by requester. A
// candidate is ineligible if it is the requester, is offline, is exempt, may
// spy itself, or is currently spying. The result only holds for the moment of
// the call.
func Ineligible(candidate, requester uuid.UUID, pop Population, perms Permissions, reg *Registry) bool {
	switch {
	case candidate == requester:
		return true
	case !pop.Connected(candidate):
		return true
	case perms.Has(candidate, CapabilityExempt), perms.Has(candidate, CapabilitySpy):
		return true
	}
	return reg.Contains(candidate)
}

// anyEligible reports if at least one of the population may be spectated by
// requester.
func anyEligible(population []uuid.UUID, requester uuid.UUID, pop Population, perms Permissions, reg *Registry) bool {
	for _, id := range population {
		if !Ineligible(id, requester, pop, perms, reg) {
			return true
		}
	}
	return false
}

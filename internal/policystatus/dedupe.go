package policystatus

// Deduplicate restricts recs to one representative record per distinct group
// number: the one whose id is the group's lowest across all policies, as
// given by the minIDByGroup index. Policies sharing a group number describe
// near-duplicate or related enactments; counting all of them would overstate
// a location's active-policy burden.
//
// A record with no group assigned is its own singleton group and always
// passes through. Because the index is global, a filtered group whose
// lowest-id member did not match the filters contributes nothing.
func Deduplicate(recs []Record, minIDByGroup map[int64]int64) []Record {
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if r.GroupNumber == nil {
			out = append(out, r)
			continue
		}
		if minID, ok := minIDByGroup[*r.GroupNumber]; ok && r.ID == minID {
			out = append(out, r)
		}
	}
	return out
}

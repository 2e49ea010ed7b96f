package compare

import "github.com/kozaktomas/face-compare/internal/facematch"

// Response is the wire shape of a comparison result.
type Response struct {
	Similarity float64    `json:"similarity"`
	IsSame     bool       `json:"is_same"`
	MatchInfo  *MatchInfo `json:"match_info,omitempty"`
}

// MatchInfo describes which faces were compared. It is only included when at
// least one image contained more than one face.
type MatchInfo struct {
	FaceALocation  facematch.BoundingBox `json:"face_a_location"`
	FaceBLocation  facematch.BoundingBox `json:"face_b_location"`
	MultipleFacesA bool                  `json:"multiple_faces_a"`
	MultipleFacesB bool                  `json:"multiple_faces_b"`
	TotalFacesA    int                   `json:"total_faces_a"`
	TotalFacesB    int                   `json:"total_faces_b"`
}

// ToResponse converts a MatchResult into its wire shape.
func ToResponse(res facematch.MatchResult) Response {
	resp := Response{
		Similarity: res.Similarity,
		IsSame:     res.IsSame,
	}
	if res.MultiFaceA || res.MultiFaceB {
		resp.MatchInfo = &MatchInfo{
			FaceALocation:  res.BoxA,
			FaceBLocation:  res.BoxB,
			MultipleFacesA: res.MultiFaceA,
			MultipleFacesB: res.MultiFaceB,
			TotalFacesA:    res.CountA,
			TotalFacesB:    res.CountB,
		}
	}
	return resp
}

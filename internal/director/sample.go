package director

import (
	"context"
	"fmt"

	"github.com/mertkiray/promptvfx/internal/splat"
)

// Scorer rates an animation from 0 to 100, higher is better.
type Scorer func(ctx context.Context, anim *Animation) (int, error)

// Evolution keeps every candidate generated for one request.
type Evolution struct {
	Sampled []*Animation
	Final   *Animation
}

// Sample generates n candidates and keeps the best scored one as Final.
// Candidates are only scored when there is more than one; ties keep the
// earlier candidate.
func (d *Director) Sample(ctx context.Context, req Request, n int, sample *splat.AttributeSet, score Scorer) (*Evolution, error) {
	if n < 1 {
		n = 1
	}
	evo := &Evolution{}
	for i := 1; i <= n; i++ {
		if n > 1 {
			d.Log.Info("[*] sample %d/%d", i, n)
		}
		anim, err := d.Generate(ctx, req, sample)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		if n > 1 && score != nil {
			s, err := score(ctx, anim)
			if err != nil {
				return nil, fmt.Errorf("score sample %d: %w", i, err)
			}
			anim.Score = s
			d.Log.Info("[>] sample %d scored %d", i, s)
		}
		evo.Sampled = append(evo.Sampled, anim)
		if evo.Final == nil || anim.Score > evo.Final.Score {
			evo.Final = anim
		}
	}
	return evo, nil
}

package models

import (
	"testing"
)

func validPlayer() *Player {
	return &Player{
		ID:              123456789,
		Username:        "tester",
		Water:           100,
		Food:            100,
		Medicine:        100,
		Ore:             100,
		WaterQuality:    QualityMedium,
		FoodQuality:     QualityMedium,
		MedicineQuality: QualityMedium,
		OreQuality:      QualityMedium,
		Coins:           10,
	}
}

func TestPlayer_BeforeSave_Balances(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Player)
		wantErr bool
	}{
		{
			name:    "Valid player",
			mutate:  func(p *Player) {},
			wantErr: false,
		},
		{
			name:    "Zero balances",
			mutate:  func(p *Player) { p.Water, p.Food, p.Medicine, p.Ore, p.Coins = 0, 0, 0, 0, 0 },
			wantErr: false,
		},
		{
			name:    "Negative sperm",
			mutate:  func(p *Player) { p.Sperm = -1 },
			wantErr: true,
		},
		{
			name:    "Negative ore",
			mutate:  func(p *Player) { p.Ore = -5 },
			wantErr: true,
		},
		{
			name:    "Negative coins",
			mutate:  func(p *Player) { p.Coins = -2 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPlayer()
			tt.mutate(p)

			err := p.BeforeSave(nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("BeforeSave() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlayer_BeforeSave_Quality(t *testing.T) {
	tests := []struct {
		name    string
		quality Quality
		wantErr bool
	}{
		{name: "Low quality", quality: QualityLow, wantErr: false},
		{name: "High quality", quality: QualityHigh, wantErr: false},
		{name: "Unknown quality", quality: "legendary", wantErr: true},
		{name: "Empty quality", quality: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPlayer()
			p.FoodQuality = tt.quality

			err := p.BeforeSave(nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("BeforeSave() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQuality_FactorAndNext(t *testing.T) {
	if got := QualityLow.Factor(); got != 0.5 {
		t.Errorf("QualityLow.Factor() = %v, want 0.5", got)
	}
	if got := QualityHigh.Factor(); got != 1.5 {
		t.Errorf("QualityHigh.Factor() = %v, want 1.5", got)
	}

	next, ok := QualityLow.Next()
	if !ok || next != QualityMedium {
		t.Errorf("QualityLow.Next() = %v, %v, want medium, true", next, ok)
	}
	if _, ok := QualityHigh.Next(); ok {
		t.Error("QualityHigh.Next() should report no higher tier")
	}
}

func TestParseResource(t *testing.T) {
	tests := []struct {
		in     string
		want   Resource
		wantOK bool
	}{
		{in: "sperms", want: ResourceSperm, wantOK: true},
		{in: "egg", want: ResourceEgg, wantOK: true},
		{in: "ore", want: ResourceOre, wantOK: true},
		{in: "gold", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseResource(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseResource(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPlayer_AddAndAmount(t *testing.T) {
	p := validPlayer()
	p.Add(ResourceEgg, 7)
	p.Add(ResourceWater, -40)

	if p.Amount(ResourceEgg) != 7 {
		t.Errorf("Amount(egg) = %d, want 7", p.Amount(ResourceEgg))
	}
	if p.Amount(ResourceWater) != 60 {
		t.Errorf("Amount(water) = %d, want 60", p.Amount(ResourceWater))
	}
	if p.BaseTotal() != 360 {
		t.Errorf("BaseTotal() = %d, want 360", p.BaseTotal())
	}
}

func TestMatch_RosterHelpers(t *testing.T) {
	m := &Match{TeamIDs: []uint{3, 9}, Capacity: 2, Phase: MatchPhaseRecruiting}
	if !m.HasTeam(9) || m.HasTeam(4) {
		t.Error("HasTeam() mismatch")
	}
	if !m.IsFull() {
		t.Error("IsFull() = false, want true")
	}
	if !m.IsRecruiting() {
		t.Error("IsRecruiting() = false, want true")
	}
}

package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pharmachain/trustscore/internal/domain/entity"
)

// Fixtures is the YAML document layout accepted by LoadFixtures
type Fixtures struct {
	Suppliers   []entity.Supplier  `yaml:"suppliers"`
	Reviews     []entity.Review    `yaml:"reviews"`
	Tasks       []entity.Task      `yaml:"tasks"`
	Signatures  []entity.Signature `yaml:"signatures"`
	DrugBatches []entity.DrugBatch `yaml:"drug_batches"`
}

// LoadFixturesFile reads a YAML fixture file into the store
func (s *Store) LoadFixturesFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixtures: %w", err)
	}
	return s.LoadFixtures(data)
}

// LoadFixtures decodes YAML fixtures into the store. Reviews with no status
// are treated as approved.
func (s *Store) LoadFixtures(data []byte) error {
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("parse fixtures: %w", err)
	}

	for _, sup := range fx.Suppliers {
		if sup.ID == "" {
			return fmt.Errorf("fixture supplier without id")
		}
		s.AddSupplier(sup)
	}
	for _, r := range fx.Reviews {
		if r.Status == "" {
			r.Status = entity.ReviewStatusApproved
		}
		s.AddReview(r)
	}
	for _, t := range fx.Tasks {
		s.AddTask(t)
	}
	for _, sig := range fx.Signatures {
		s.AddSignature(sig)
	}
	for _, b := range fx.DrugBatches {
		if b.ID == "" {
			return fmt.Errorf("fixture drug batch without id")
		}
		if b.Status == "" {
			b.Status = entity.DrugStatusActive
		}
		s.AddDrugBatch(b)
	}
	return nil
}

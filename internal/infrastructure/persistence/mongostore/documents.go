package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmachain/trustscore/internal/domain/entity"
)

// Collections names the upstream collections read and the score collection written
type Collections struct {
	Users      string
	Reviews    string
	Tasks      string
	Signatures string
	Drugs      string
	Scores     string
}

// DefaultCollections matches the collection names of the upstream platform
func DefaultCollections() Collections {
	return Collections{
		Users:      "users",
		Reviews:    "reviews",
		Tasks:      "tasks",
		Signatures: "digitalsignatures",
		Drugs:      "drugs",
		Scores:     "suppliertrustscores",
	}
}

type userDoc struct {
	ID               primitive.ObjectID `bson:"_id"`
	Role             string             `bson:"role"`
	FullName         string             `bson:"fullName"`
	OrganizationInfo struct {
		Name string `bson:"name"`
	} `bson:"organizationInfo"`
}

func (d userDoc) toEntity() *entity.Supplier {
	return &entity.Supplier{
		ID:               d.ID.Hex(),
		Role:             entity.Role(d.Role),
		FullName:         d.FullName,
		OrganizationName: d.OrganizationInfo.Name,
	}
}

type reviewDoc struct {
	ID              primitive.ObjectID `bson:"_id"`
	TargetType      string             `bson:"targetType"`
	TargetID        primitive.ObjectID `bson:"targetId"`
	OverallRating   int                `bson:"overallRating"`
	IsVerified      bool               `bson:"isVerified"`
	CriteriaRatings map[string]int     `bson:"criteriaRatings"`
	Status          string             `bson:"status"`
	CreatedAt       time.Time          `bson:"createdAt"`
}

func (d reviewDoc) toEntity() *entity.Review {
	return &entity.Review{
		ID:              d.ID.Hex(),
		TargetType:      d.TargetType,
		TargetID:        d.TargetID.Hex(),
		OverallRating:   d.OverallRating,
		IsVerified:      d.IsVerified,
		CriteriaRatings: d.CriteriaRatings,
		Status:          d.Status,
		CreatedAt:       d.CreatedAt,
	}
}

type taskDoc struct {
	ID            primitive.ObjectID `bson:"_id"`
	AssignedTo    primitive.ObjectID `bson:"assignedTo"`
	Status        string             `bson:"status"`
	DueDate       *time.Time         `bson:"dueDate"`
	CompletedAt   *time.Time         `bson:"completedAt"`
	QualityRating *float64           `bson:"qualityRating"`
}

func (d taskDoc) toEntity() *entity.Task {
	return &entity.Task{
		ID:            d.ID.Hex(),
		AssignedTo:    d.AssignedTo.Hex(),
		Status:        d.Status,
		DueDate:       d.DueDate,
		CompletedAt:   d.CompletedAt,
		QualityRating: d.QualityRating,
	}
}

type signatureDoc struct {
	ID       primitive.ObjectID `bson:"_id"`
	SignedBy primitive.ObjectID `bson:"signedBy"`
	Status   string             `bson:"status"`
	IsValid  bool               `bson:"isValid"`
}

func (d signatureDoc) toEntity() *entity.Signature {
	return &entity.Signature{
		ID:       d.ID.Hex(),
		SignedBy: d.SignedBy.Hex(),
		Status:   d.Status,
		IsValid:  d.IsValid,
	}
}

type drugDoc struct {
	ID             primitive.ObjectID `bson:"_id"`
	BatchNumber    string             `bson:"batchNumber"`
	Name           string             `bson:"name"`
	ManufacturerID primitive.ObjectID `bson:"manufacturerId"`
	IsRecalled     bool               `bson:"isRecalled"`
	ExpiryDate     time.Time          `bson:"expiryDate"`
	Status         string             `bson:"status"`
	QualityTest    struct {
		TestResult string     `bson:"testResult"`
		TestDate   *time.Time `bson:"testDate"`
	} `bson:"qualityTest"`
}

func (d drugDoc) toEntity() *entity.DrugBatch {
	return &entity.DrugBatch{
		ID:             d.ID.Hex(),
		BatchNumber:    d.BatchNumber,
		Name:           d.Name,
		ManufacturerID: d.ManufacturerID.Hex(),
		IsRecalled:     d.IsRecalled,
		ExpiryDate:     d.ExpiryDate,
		Status:         d.Status,
		QualityTest: entity.QualityTest{
			TestResult: d.QualityTest.TestResult,
			TestDate:   d.QualityTest.TestDate,
		},
	}
}

// objectID parses a hex id. ok is false for ids that cannot exist upstream.
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

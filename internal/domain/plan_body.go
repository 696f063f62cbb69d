package domain

// NutritionBody is the typed view of a nutrition plan body. Tracking entry
// keys for nutrition plans are "<mealIndex>-<optionIndex>".
type NutritionBody struct {
	Meals []Meal `bson:"meals" json:"meals"`
}

type Meal struct {
	Name    string       `bson:"name" json:"name"`
	Options []MealOption `bson:"options" json:"options"`
}

// MealOption is one alternative for a meal; macros are per serving.
type MealOption struct {
	Name     string  `bson:"name" json:"name"`
	Calories float64 `bson:"calories" json:"calories"`
	Protein  float64 `bson:"protein" json:"protein"`
	Carbs    float64 `bson:"carbs" json:"carbs"`
	Fat      float64 `bson:"fat" json:"fat"`
}

// TrainingBody is the typed view of a training plan body. Tracking entry keys
// for training plans are "<workoutIndex>-<exerciseIndex>".
type TrainingBody struct {
	Workouts []Workout `bson:"workouts" json:"workouts"`
}

type Workout struct {
	Name      string            `bson:"name" json:"name"` // e.g., "Day 1: Upper Body"
	Exercises []WorkoutExercise `bson:"exercises" json:"exercises"`
}

type WorkoutExercise struct {
	Name  string `bson:"name" json:"name"`
	Sets  int    `bson:"sets,omitempty" json:"sets,omitempty"`
	Reps  string `bson:"reps,omitempty" json:"reps,omitempty"` // "8-10", "AMRAP", ...
	Notes string `bson:"notes,omitempty" json:"notes,omitempty"`
}

package seed

import (
	"github.com/MohanGuptaKoduru/ServiceLink/core"
)

var samples = []core.Technician{
	{
		Name:        "Rishi",
		Email:       "rishi@example.com",
		Phone:       "9876512345",
		Service:     "Plumbing",
		Description: "Experienced plumber specializing in fixing water pumps, pipe leakages, and bathroom fixtures. Available for emergency plumbing services.",
		Specialties: []string{"Water Pump Repair", "Pipe Installation", "Leak Detection", "Bathroom Fixtures", "Emergency Repairs"},
		Rating:      4.8,
		ReviewCount: 124,
		Location:    "Mumbai, India",
		Available:   true,
		Languages:   []string{"English", "Hindi"},
	},
	{
		Name:        "Anjali",
		Email:       "anjali@example.com",
		Phone:       "9856432178",
		Service:     "Electrical",
		Description: "Certified electrician specializing in home electrical systems, wiring, circuit repairs and installations. Can handle power outages and electrical emergencies.",
		Specialties: []string{"Wiring", "Circuit Repair", "Electrical Panel", "Power Outages", "Lighting Installation"},
		Rating:      4.9,
		ReviewCount: 89,
		Location:    "Delhi, India",
		Available:   true,
		Languages:   []string{"English", "Hindi"},
	},
	{
		Name:        "Rahul",
		Email:       "rahul@example.com",
		Phone:       "8765432190",
		Service:     "HVAC",
		Description: "HVAC expert with certification in heating and air conditioning systems. Specializes in AC installation, repair, and maintenance. Can fix cooling issues and heating problems.",
		Specialties: []string{"AC Installation", "Heating Repair", "Ventilation", "Cooling Systems", "AC Servicing"},
		Rating:      4.7,
		ReviewCount: 65,
		Location:    "Bangalore, India",
		Available:   true,
		Languages:   []string{"English", "Kannada"},
	},
	{
		Name:        "Priya",
		Email:       "priya@example.com",
		Phone:       "7865432109",
		Service:     "Appliance Repair",
		Description: "Specialized in repairing all major home appliances including refrigerators, washing machines, and water purifiers. Experienced in fixing water motors and pumps for homes.",
		Specialties: []string{"Refrigerator Repair", "Washer/Dryer Fix", "Dishwasher Service", "Water Purifier", "Water Pump"},
		Rating:      4.6,
		ReviewCount: 72,
		Location:    "Chennai, India",
		Available:   true,
		Languages:   []string{"English", "Tamil"},
	},
	{
		Name:        "Vikram",
		Email:       "vikram@example.com",
		Phone:       "8976543210",
		Service:     "Carpentry",
		Description: "Skilled carpenter with experience in furniture and cabinet making. Can handle wooden door repairs and window frame installation.",
		Specialties: []string{"Furniture Assembly", "Cabinet Making", "Woodwork", "Door Repair", "Window Frames"},
		Rating:      4.5,
		ReviewCount: 103,
		Location:    "Hyderabad, India",
		Available:   true,
		Languages:   []string{"English", "Telugu"},
	},
	{
		Name:        "Aakash",
		Email:       "aakash@example.com",
		Phone:       "9988776655",
		Service:     "Water Systems",
		Description: "Water systems expert specializing in water pumps, tanks, and purification systems. Can troubleshoot and repair all types of water motors and pumping systems for homes and buildings.",
		Specialties: []string{"Water Motor Repair", "Submersible Pumps", "Water Tank Installation", "Pressure Boosting", "Pipe Fitting"},
		Rating:      4.9,
		ReviewCount: 87,
		Location:    "Pune, India",
		Available:   true,
		Languages:   []string{"English", "Marathi", "Hindi"},
	},
	{
		Name:        "Sanjay",
		Email:       "sanjay@example.com",
		Phone:       "8899776655",
		Service:     "General Maintenance",
		Description: "All-round home maintenance technician with expertise in plumbing, basic electrical work, and water pump repairs. Available for emergency fixes and regular maintenance.",
		Specialties: []string{"Plumbing", "Basic Electrical", "Water Pump Fixing", "Home Maintenance", "Leak Repair"},
		Rating:      4.7,
		ReviewCount: 113,
		Location:    "Mumbai, India",
		Available:   true,
		Languages:   []string{"English", "Hindi", "Marathi"},
	},
}

// SampleTechnicians returns fresh copies of the built-in demo technicians.
// None has an ID or an embedding.
func SampleTechnicians() []*core.Technician {
	out := make([]*core.Technician, len(samples))
	for i := range samples {
		out[i] = samples[i].Clone()
	}
	return out
}
